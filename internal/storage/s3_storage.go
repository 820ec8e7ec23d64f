package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/madickediagne/LOGISEN/internal/config"
)

// IS3Storage defines the interface for listing photo storage.
type IS3Storage interface {
	GeneratePresignedPutURL(ctx context.Context, ownerID, listingID, filename, contentType string) (uploadURL, objectKey string, err error)
	PublicURL(objectKey string) string
	S3Client() *s3.Client
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config) (IS3Storage, error) {
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(),
		aws_config.WithRegion(cfg.AwsRegion),
		aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	presignClient := s3.NewPresignClient(s3Client)

	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: presignClient,
	}, nil
}

// S3Client exposes the underlying client for the image worker.
func (s *s3Storage) S3Client() *s3.Client {
	return s.s3Client
}

// GeneratePresignedPutURL creates a pre-signed URL for uploading a listing
// photo, plus the object key the client must use. The key embeds a random
// uuid so uploads never collide, and the filename is flattened to its base
// to keep the key path shape fixed.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, ownerID, listingID, filename, contentType string) (string, string, error) {
	if idx := strings.LastIndexAny(filename, "/\\"); idx >= 0 {
		filename = filename[idx+1:]
	}
	objectKey := fmt.Sprintf("listings/%s/%s/%s_%s", ownerID, listingID, uuid.NewString(), filename)

	expiration := 15 * time.Minute

	presignParams := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, presignParams, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	return presignedReq.URL, objectKey, nil
}

// PublicURL maps an object key to the URL stored on the listing document.
func (s *s3Storage) PublicURL(objectKey string) string {
	base := strings.TrimRight(s.cfg.ImageBaseS3URL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.cfg.AwsS3Bucket, s.cfg.AwsRegion)
	}
	return base + "/" + objectKey
}
