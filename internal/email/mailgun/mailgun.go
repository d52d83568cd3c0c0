// Package mailgun sends emails via the Mailgun HTTP API.
package mailgun

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/krypto"
)

const maxErrBody = 1024

// Settings contains the settings for the Mailgun API.
type Settings struct {
	// BaseURL is the API root, for example https://api.eu.mailgun.net.
	BaseURL  *url.URL
	Domain   string
	Username string
	Password krypto.Secret
	Timeout  time.Duration
}

// Sender is an email sender that sends emails using the Mailgun API.
type Sender struct {
	client   *http.Client
	settings Settings
}

// NewSender creates a new sender.
func NewSender(client *http.Client, s Settings) *Sender {
	return &Sender{
		client:   client,
		settings: s,
	}
}

type formField struct {
	name  string
	value string
}

// Send sends an email using the Mailgun API.
func (s *Sender) Send(ctx context.Context, msg email.Message) error {
	// We don't use the Go mailgun package, it brings in a lot of dependencies
	// for a single POST request.
	fields := []formField{
		{"from", string(msg.From)},
		{"to", string(msg.To)},
		{"subject", msg.Subject},
		{"text", msg.TextBody},
	}
	if msg.HTMLBody != "" {
		fields = append(fields, formField{"html", msg.HTMLBody})
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		err := w.WriteField(f.name, f.value)
		if err != nil {
			return fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}

	err := w.Close()
	if err != nil {
		return err
	}

	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	reqURL := s.settings.BaseURL.JoinPath("v3", s.settings.Domain, "messages").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", w.FormDataContentType())
	req.SetBasicAuth(s.settings.Username, string(s.settings.Password.SecretValue()))

	resp, err := s.client.Do(req)
	if err != nil {
		return email.TransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &email.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	// Drain so the connection can be reused.
	_, err = io.Copy(io.Discard, resp.Body)
	if err != nil {
		return email.TransportErr(fmt.Errorf("failed to read response body: %w", err))
	}

	return nil
}
