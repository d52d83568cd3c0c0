package newsletter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/willemschots/newsletter/internal/email"
	"golang.org/x/sync/errgroup"
)

// ErrRegistryUnavailable is returned when the recipients could not be listed.
// Nothing has been sent when this error is returned.
var ErrRegistryUnavailable = errors.New("subscriber registry unavailable")

// Registry lists the raw email addresses of confirmed subscribers.
type Registry interface {
	ListConfirmed(ctx context.Context) ([]string, error)
}

// Config configures a Dispatcher.
type Config struct {
	From email.Address
	// Concurrency is the number of sends in flight, 1 sends strictly sequentially.
	Concurrency int
	// SendTimeout bounds a single send. Zero means no timeout.
	SendTimeout time.Duration
}

// Dispatcher delivers issues to every confirmed subscriber. Every recipient
// is attempted, a failure for one never affects the others.
type Dispatcher struct {
	logger   *slog.Logger
	registry Registry
	sender   email.Sender
	cfg      Config
	metrics  *dispatchMetrics
}

// NewDispatcher creates a new dispatcher. Metrics are registered with reg
// when it is not nil.
func NewDispatcher(logger *slog.Logger, registry Registry, sender email.Sender, cfg Config, reg prometheus.Registerer) (*Dispatcher, error) {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	_, err := email.ParseAddress(string(cfg.From))
	if err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", cfg.From, err)
	}

	m, err := newDispatchMetrics(reg)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		logger:   logger,
		registry: registry,
		sender:   sender,
		cfg:      cfg,
		metrics:  m,
	}, nil
}

// Deliver sends the issue to all confirmed subscribers.
//
// The returned error is only non-nil when the issue is invalid or the
// registry could not be read. Failed deliveries are reported in the Report.
//
// Once sending has started, cancelling ctx no longer stops the batch.
// Emails that were sent can't be unsent, so the batch always runs to the end.
func (d *Dispatcher) Deliver(ctx context.Context, issue Issue) (Report, error) {
	err := issue.validate()
	if err != nil {
		return Report{}, err
	}

	recipients, err := d.registry.ListConfirmed(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrRegistryUnavailable, err)
	}

	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	report := Report{
		Outcomes: make([]Outcome, len(recipients)),
	}

	var g errgroup.Group
	g.SetLimit(d.cfg.Concurrency)
	for i, raw := range recipients {
		// Go blocks while the limit is reached, so sends start in enumeration order.
		g.Go(func() error {
			report.Outcomes[i] = d.deliverOne(ctx, i, raw, issue)
			return nil
		})
	}

	// deliverOne never returns an error to the group.
	_ = g.Wait()

	d.metrics.duration.Observe(time.Since(start).Seconds())
	d.logger.Info("published newsletter issue",
		"title", issue.Title,
		"recipients", len(report.Outcomes),
		"delivered", report.Delivered(),
		"failed", report.Failed(),
	)

	return report, nil
}

func (d *Dispatcher) deliverOne(ctx context.Context, i int, raw string, issue Issue) (out Outcome) {
	out = Outcome{
		Email: raw,
	}

	// logged instead of the address, which is personal data.
	domain := "unknown"

	defer func() {
		if r := recover(); r != nil {
			out.Err = fmt.Errorf("panic while sending: %v", r)
		}

		if out.Err != nil {
			out.Status = Failed
			d.logger.Warn("failed to deliver newsletter issue", "recipient", i, "domain", domain, "error", out.Err)
		} else {
			out.Status = Delivered
		}

		d.metrics.deliveries.WithLabelValues(out.Status.String()).Inc()
	}()

	to, err := email.ParseAddress(raw)
	if err != nil {
		out.Err = fmt.Errorf("skipping confirmed subscriber with malformed address: %w", err)
		return out
	}
	domain = to.Domain()

	if d.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.SendTimeout)
		defer cancel()
	}

	out.Err = d.sender.Send(ctx, email.Message{
		From:     d.cfg.From,
		To:       to,
		Subject:  issue.Title,
		HTMLBody: issue.HTMLContent,
		TextBody: issue.TextContent,
	})

	return out
}
