package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"

	"github.com/madickediagne/LOGISEN/internal/config"
	"github.com/madickediagne/LOGISEN/internal/email"
	"github.com/madickediagne/LOGISEN/internal/models"
	"github.com/madickediagne/LOGISEN/internal/services"
	"github.com/madickediagne/LOGISEN/internal/storage"
	"github.com/madickediagne/LOGISEN/internal/utils"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

// --- Task Client (Enqueuing tasks) ---

func NewClient(rdb *redis.Client) *asynq.Client {
	clientOpt := asynq.RedisClientOpt{
		Addr: rdb.Options().Addr,
	}
	return asynq.NewClient(clientOpt)
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	storageService storage.IS3Storage
	listingService services.IListingService
	visitService   services.IVisitService
	userService    services.IUserService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	listingService services.IListingService,
	visitService services.IVisitService,
	userService services.IUserService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		storageService: storageService,
		listingService: listingService,
		visitService:   visitService,
		userService:    userService,
	}
}

// SetupServer configures and starts an Asynq server instance. The server
// runs in the background; callers stop it with Shutdown.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker bool, isBgWorker bool) *asynq.Server {
	serverOpt := asynq.RedisClientOpt{
		Addr: rdb.Options().Addr,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
				"images":   5,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()

	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
		mux.HandleFunc(services.TypeVisitNotify, processor.HandleVisitNotifyTask)
		log.Println("Registered background task handlers.")
	}

	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}

	if !isBgWorker && !isImageWorker {
		log.Println("Running in API mode, no task server started.")
		return nil
	}

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	return srv
}

// --- Task Handlers ---

// EmailTaskPayload is the generic email delivery payload.
type EmailTaskPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}

	rawMessage := p.buildRawMessage(payload.To, payload.Subject, payload.Body)
	if err := p.emailSender.Send(ctx, []string{payload.To}, payload.Subject, rawMessage); err != nil {
		log.Printf("Email sending failed (will retry): %v", err)
		return err
	}

	log.Printf("Email task processed successfully: To=%s", payload.To)
	return nil
}

// HandleVisitNotifyTask emails the party affected by a visit event. A new
// request notifies the landlord; status changes and rescheduling notify the
// student.
func (p *TaskProcessor) HandleVisitNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload services.VisitNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal visit notify payload: %v: %w", err, asynq.SkipRetry)
	}

	visitID, err := utils.ParseSixID(payload.VisitID)
	if err != nil {
		log.Printf("Invalid VisitID in notify payload: %s", payload.VisitID)
		return fmt.Errorf("invalid visit ID in payload: %w", asynq.SkipRetry)
	}

	visit, err := p.visitService.FindVisitByID(ctx, visitID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("visit not found: %w", asynq.SkipRetry)
		}
		return err
	}

	var recipientID utils.SixID
	var subject, body string
	switch payload.Event {
	case "created":
		recipientID = visit.LandlordID
		subject = fmt.Sprintf("Nouvelle demande de visite pour %s", visit.ListingTitle)
		body = fmt.Sprintf("%s souhaite visiter votre logement \"%s\" (%s). Téléphone : %s.",
			visit.StudentName, visit.ListingTitle, visit.ListingArea, visit.StudentPhone)
	case string(models.VisitConfirmed):
		recipientID = visit.StudentID
		subject = fmt.Sprintf("Visite confirmée pour %s", visit.ListingTitle)
		body = fmt.Sprintf("Votre demande de visite pour \"%s\" a été confirmée. %s", visit.ListingTitle, dateLine(visit.Date))
	case string(models.VisitDone):
		recipientID = visit.StudentID
		subject = fmt.Sprintf("Visite terminée pour %s", visit.ListingTitle)
		body = fmt.Sprintf("Votre visite pour \"%s\" est marquée comme terminée.", visit.ListingTitle)
	case string(models.VisitCancelled):
		recipientID = visit.StudentID
		subject = fmt.Sprintf("Visite annulée pour %s", visit.ListingTitle)
		body = fmt.Sprintf("Votre demande de visite pour \"%s\" a été annulée. Vous pouvez soumettre une nouvelle demande.", visit.ListingTitle)
	case "rescheduled":
		recipientID = visit.StudentID
		subject = fmt.Sprintf("Visite reprogrammée pour %s", visit.ListingTitle)
		body = fmt.Sprintf("La visite pour \"%s\" a une nouvelle date. %s", visit.ListingTitle, dateLine(visit.Date))
	default:
		log.Printf("Unknown visit notify event %q for %s", payload.Event, payload.VisitID)
		return fmt.Errorf("unknown visit event: %w", asynq.SkipRetry)
	}

	recipient, err := p.userService.FindByID(ctx, recipientID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("recipient not found: %w", asynq.SkipRetry)
		}
		return err
	}

	rawMessage := p.buildRawMessage(recipient.Email, subject, body)
	if err := p.emailSender.Send(ctx, []string{recipient.Email}, subject, rawMessage); err != nil {
		log.Printf("Visit notification sending failed (will retry): %v", err)
		return err
	}

	log.Printf("Visit notification sent: visit=%s event=%s to=%s", payload.VisitID, payload.Event, recipient.Email)
	return nil
}

func dateLine(date string) string {
	if date == "" {
		return "La date reste à définir."
	}
	return fmt.Sprintf("Date proposée : %s.", date)
}

// buildRawMessage assembles the full SMTP message with headers.
func (p *TaskProcessor) buildRawMessage(to, subject, body string) []byte {
	fromAddress := p.cfg.SmtpFromAddress
	if fromAddress == "" {
		fromAddress = "noreply@logisen.sn"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("To: %s\r\n", to))
	sb.WriteString(fmt.Sprintf("From: %s\r\n", fromAddress))
	sb.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	sb.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")

	return []byte(sb.String())
}

// ImageTaskPayload is the payload for listing photo normalization.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
	OwnerID   string `json:"owner_id"`
}

// HandleImageProcessTask downloads an uploaded photo, resizes it within the
// configured bounds, re-uploads it in place and attaches the public URL to
// the listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	listingID, err := utils.ParseSixID(payload.ListingID)
	if err != nil {
		log.Printf("Invalid ListingID in image task payload: %s", payload.ListingID)
		return fmt.Errorf("invalid listing ID in payload: %w", asynq.SkipRetry)
	}
	ownerID, err := utils.ParseSixID(payload.OwnerID)
	if err != nil {
		log.Printf("Invalid OwnerID in image task payload: %s", payload.OwnerID)
		return fmt.Errorf("invalid owner ID in payload: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)

	s3Client := p.storageService.S3Client()
	getObjectOutput, err := s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.cfg.AwsS3Bucket),
		Key:    aws.String(payload.S3Key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			log.Printf("S3 object %s not found, likely upload failed or key incorrect.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return fmt.Errorf("failed to download image from S3: %w", err)
	}
	defer getObjectOutput.Body.Close()

	imgData, err := io.ReadAll(getObjectOutput.Body)
	if err != nil {
		return fmt.Errorf("failed to read image data: %w", err)
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}
	log.Printf("Decoded image %s, format: %s, size: %dx%d", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())

	maxWidth := uint(p.cfg.ImageMaxDimension)
	maxHeight := uint(p.cfg.ImageMaxDimension)
	needsResize := uint(img.Bounds().Dx()) > maxWidth || uint(img.Bounds().Dy()) > maxHeight

	var processedImageData []byte
	contentType := aws.ToString(getObjectOutput.ContentType)

	if needsResize {
		resizedImg := resize.Thumbnail(maxWidth, maxHeight, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resizedImg, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		processedImageData = buf.Bytes()
		contentType = "image/jpeg"
		log.Printf("Resized image %s to %dx%d", payload.S3Key, resizedImg.Bounds().Dx(), resizedImg.Bounds().Dy())

		if int64(len(processedImageData)) > maxSizeBytes {
			log.Printf("Resized image %s still exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(processedImageData), maxSizeBytes)
			return fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
		}
	} else {
		processedImageData = imgData
	}

	_, err = s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.AwsS3Bucket),
		Key:         aws.String(payload.S3Key),
		Body:        bytes.NewReader(processedImageData),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload processed image: %w", err)
	}

	publicURL := p.storageService.PublicURL(payload.S3Key)
	if err := p.listingService.AddImageToListing(ctx, listingID, ownerID, publicURL); err != nil {
		log.Printf("Error adding image %s to listing %s: %v", payload.S3Key, payload.ListingID, err)
		return fmt.Errorf("failed to update listing with processed image: %w", err)
	}

	log.Printf("Image task processed successfully: Key=%s, ListingID=%s", payload.S3Key, payload.ListingID)
	return nil
}
