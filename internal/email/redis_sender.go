package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/madickediagne/LOGISEN/internal/config"
)

// RedisSender implements the Sender interface by storing emails in Redis.
// Used under MOCK_SERVICES so integration tests can assert on what was sent.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// Send stores a representation of the email in Redis instead of sending it.
// The subject prefix classifies the notification so tests can look up the
// exact key they expect.
func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	kind := "other"
	switch {
	case strings.Contains(subject, "Nouvelle demande de visite"):
		kind = "visit_created"
	case strings.Contains(subject, "Visite confirmée"):
		kind = "visit_confirmed"
	case strings.Contains(subject, "Visite annulée"):
		kind = "visit_cancelled"
	case strings.Contains(subject, "Visite reprogrammée"):
		kind = "visit_rescheduled"
	case strings.Contains(subject, "Visite terminée"):
		kind = "visit_done"
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	emailData := map[string]interface{}{
		"to":      strings.Join(to, ", "),
		"from":    s.cfg.SmtpFromAddress,
		"subject": subject,
		"body":    string(rawMessage),
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
		"kind":    kind,
	}

	jsonData, err := json.Marshal(emailData)
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := fmt.Sprintf("mockemail:%s:%s", primaryTo, kind)
	ttl := 5 * time.Minute

	if err := s.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, ttl, strings.Join(to, ", "), subject)
	return nil
}
