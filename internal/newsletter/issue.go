// Package newsletter publishes newsletter issues to confirmed subscribers.
package newsletter

import (
	"errors"
	"strings"

	"github.com/willemschots/newsletter/internal/errorz"
)

var errRequired = errors.New("required")

// Issue is a single newsletter edition.
type Issue struct {
	Title       string `schema:"title"`
	TextContent string `schema:"text_content"`
	HTMLContent string `schema:"html_content"`
}

func (i Issue) validate() error {
	var invalid errorz.InvalidInput
	fields := []struct {
		key   string
		value string
	}{
		{"title", i.Title},
		{"text_content", i.TextContent},
		{"html_content", i.HTMLContent},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			invalid.Add(f.key, errRequired)
		}
	}

	return invalid.Err()
}
