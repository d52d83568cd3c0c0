package email

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTransport indicates the email provider could not be reached.
	ErrTransport = errors.New("email transport failed")
	// ErrTimeout indicates the email provider did not respond in time.
	ErrTimeout = errors.New("email provider timed out")
	// ErrRejected indicates the email provider refused the message.
	ErrRejected = errors.New("email rejected by provider")
)

// Message is a single email to a single recipient.
type Message struct {
	From     Address
	To       Address
	Subject  string
	HTMLBody string
	TextBody string
}

// Sender is responsible for actually sending an email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// StatusError is returned when the provider responded with a non-success status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: status %d: %s", ErrRejected, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrRejected
}

// TransportErr classifies an error returned by an HTTP client as either
// ErrTimeout or ErrTransport.
func TransportErr(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %w", ErrTransport, err)
}
