package subscriber

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/errorz"
)

// Store persists subscribers.
type Store interface {
	// Create stores a new subscriber. It returns errorz.ErrConstraintViolated
	// when the email address is already subscribed.
	Create(ctx context.Context, s *Subscriber) error

	// FindByEmail returns errorz.ErrNotFound when there is no subscriber for addr.
	FindByEmail(ctx context.Context, addr email.Address) (Subscriber, error)

	// SetStatus returns errorz.ErrNotFound when there is no subscriber with id.
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
}

// Service contains the rules for subscribing.
type Service struct {
	logger *slog.Logger
	store  Store

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(logger *slog.Logger, store Store) *Service {
	return &Service{
		logger:  logger,
		store:   store,
		NowFunc: time.Now,
	}
}

// Subscribe creates a pending subscription.
//
// Subscribing an address twice is not an error. The response is the same
// either way, so the endpoint can't be used to find out who is subscribed.
func (s *Service) Subscribe(ctx context.Context, signup Signup) error {
	sub := Subscriber{
		ID:           uuid.New(),
		Email:        signup.Email,
		Name:         signup.Name,
		Status:       StatusPendingConfirmation,
		SubscribedAt: s.NowFunc(),
	}

	err := s.store.Create(ctx, &sub)
	if errors.Is(err, errorz.ErrConstraintViolated) {
		s.logger.Info("ignored repeated subscription")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to create subscriber: %w", err)
	}

	return nil
}

// Confirm marks the subscriber with the given address as confirmed.
// It returns errorz.ErrNotFound when the address is not subscribed.
func (s *Service) Confirm(ctx context.Context, c Confirmation) error {
	sub, err := s.store.FindByEmail(ctx, c.Email)
	if err != nil {
		return err
	}

	if sub.Status == StatusConfirmed {
		return nil
	}

	return s.store.SetStatus(ctx, sub.ID, StatusConfirmed)
}
