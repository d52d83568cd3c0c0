package email

import (
	"context"
	"sync"
)

// MemorySender keeps sent messages in memory. Sends to addresses in
// FailFor fail with the mapped error.
type MemorySender struct {
	mu      sync.Mutex
	sent    []Message
	FailFor map[Address]error
}

func NewMemorySender() *MemorySender {
	return &MemorySender{
		FailFor: make(map[Address]error),
	}
}

func (s *MemorySender) Send(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.FailFor[msg.To]; ok {
		return err
	}

	s.sent = append(s.sent, msg)
	return nil
}

// Sent returns a copy of the successfully sent messages.
func (s *MemorySender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
