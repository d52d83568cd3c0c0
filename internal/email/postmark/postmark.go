// Package postmark sends emails via the Postmark HTTP API.
package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/willemschots/newsletter/internal/email"
	"github.com/willemschots/newsletter/internal/krypto"
)

// maxErrBody limits how much of an error response ends up in errors and logs.
const maxErrBody = 1024

// Settings contains the settings for the Postmark API.
type Settings struct {
	// BaseURL is the API root, the sender posts to BaseURL/email.
	BaseURL       *url.URL
	ServerToken   krypto.Secret
	MessageStream string
	// Timeout bounds a single send, including reading the response.
	Timeout time.Duration
}

// Sender is an email sender that sends emails using the Postmark API.
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

// message is the body of POST /email, field names follow the Postmark API.
type message struct {
	From          string
	To            string
	Subject       string
	HtmlBody      string //nolint:revive
	TextBody      string
	MessageStream string `json:",omitempty"`
}

// outcome is returned by Postmark for both accepted and rejected messages.
type outcome struct {
	ErrorCode int
	Message   string
	MessageID string
}

// Send sends an email using the Postmark API.
//
// Errors wrap email.ErrTransport or email.ErrTimeout when the API could not be
// reached in time, and are an *email.StatusError for non-2xx responses.
func (s *Sender) Send(ctx context.Context, msg email.Message) error {
	if s.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.Timeout)
		defer cancel()
	}

	req, err := s.newRequest(ctx, msg)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return email.TransportErr(err)
	}
	defer resp.Body.Close()

	return checkResponse(resp)
}

func (s *Sender) newRequest(ctx context.Context, msg email.Message) (*http.Request, error) {
	body, err := json.Marshal(message{
		From:          string(msg.From),
		To:            string(msg.To),
		Subject:       msg.Subject,
		HtmlBody:      msg.HTMLBody,
		TextBody:      msg.TextBody,
		MessageStream: s.settings.MessageStream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	endpoint := s.settings.BaseURL.JoinPath("email").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Postmark-Server-Token", string(s.settings.ServerToken.SecretValue()))

	return req, nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return &email.StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out outcome
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return email.TransportErr(fmt.Errorf("decode response: %w", err))
	}

	// Postmark reports some rejections with a 200 and a non-zero code.
	if out.ErrorCode != 0 {
		return &email.StatusError{
			StatusCode: resp.StatusCode,
			Body:       fmt.Sprintf("error code %d: %s", out.ErrorCode, out.Message),
		}
	}

	return nil
}
