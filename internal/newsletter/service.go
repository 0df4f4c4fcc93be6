package newsletter

import (
	"context"
	"strings"

	"ridefuture-be/internal/apperror"
	"ridefuture-be/internal/logger"
	"ridefuture-be/internal/user"

	"go.uber.org/zap"
)

type Service interface {
	Subscribe(ctx context.Context, email string) (*Subscriber, error)
	CreateNewsletter(ctx context.Context, input CreateNewsletterInput) (*Newsletter, error)
	DeliveryStats(ctx context.Context) (map[DeliveryStatus]int64, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Subscribe(ctx context.Context, email string) (*Subscriber, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Subscribe"),
	)

	email, ok := user.NormalizeEmail(email)
	if !ok {
		return nil, apperror.NewValidation("email", "enter a valid email address")
	}

	sub, err := s.repo.Subscribe(ctx, email)
	if err != nil {
		log.Warn("subscribe failed", zap.String("email", email), zap.Error(err))
		return nil, err
	}

	log.Info("subscriber added", zap.Int64("subscriber_id", sub.ID))
	return sub, nil
}

// CreateNewsletter persists the newsletter and queues it for every subscriber.
// Mail goes out later through the Dispatcher.
func (s *service) CreateNewsletter(ctx context.Context, input CreateNewsletterInput) (*Newsletter, error) {
	input.Subject = strings.TrimSpace(input.Subject)

	vErr := &apperror.ValidationError{}
	if input.Subject == "" {
		vErr.Add("subject", "this field is required")
	} else if len(input.Subject) > 255 {
		vErr.Add("subject", "ensure this field has no more than 255 characters")
	}
	if strings.TrimSpace(input.Message) == "" {
		vErr.Add("message", "this field is required")
	}
	if err := vErr.OrNil(); err != nil {
		return nil, err
	}

	return s.repo.CreateNewsletter(ctx, input)
}

func (s *service) DeliveryStats(ctx context.Context) (map[DeliveryStatus]int64, error) {
	return s.repo.DeliveryStats(ctx)
}
