package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"dm-service/exception"

	"github.com/redis/go-redis/v9"
)

const verificationCodeTTL = 24 * time.Hour

// MailPublisher hands outbound mail events to the message bus; an external
// mailer consumes the queue.
type MailPublisher interface {
	Publish(action string, data []byte)
}

// VerificationService issues and checks the one-time codes a fresh account
// has to confirm its email address with.
type VerificationService struct {
	redis *redis.Client
	mail  MailPublisher
}

func NewVerificationService(redis *redis.Client, mail MailPublisher) *VerificationService {
	return &VerificationService{redis: redis, mail: mail}
}

type verificationMail struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Request generates a fresh 4-digit code for the user, stores it with a TTL
// and publishes it to the mail queue.
func (s *VerificationService) Request(ctx context.Context, userID uint, email string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, codeKey(userID), code, verificationCodeTTL).Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(verificationMail{Email: email, Code: code})
	if err != nil {
		return err
	}
	s.mail.Publish("verification_code", payload)

	return nil
}

// Verify checks the submitted code and burns it on success.
func (s *VerificationService) Verify(ctx context.Context, userID uint, code string) error {
	stored, err := s.redis.Get(ctx, codeKey(userID)).Result()
	if err == redis.Nil {
		return exception.BadRequest("Invalid verification code")
	}
	if err != nil {
		return err
	}

	if stored != code || code == "" {
		return exception.BadRequest("Invalid verification code")
	}

	return s.redis.Del(ctx, codeKey(userID)).Err()
}

func codeKey(userID uint) string {
	return fmt.Sprintf("verification:%d", userID)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
