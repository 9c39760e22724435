package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
)

var ErrUndeliverable = errors.New("recipient unreachable")

// Message is a message captured by Recorder.
type Message struct {
	RecipientID int64
	Text        string
	Markup      *Markup
}

// Recorder is an in-memory Notifier. Recipients listed with Fail get
// ErrUndeliverable and their messages are not recorded.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	failing  map[int64]bool
}

func NewRecorder() *Recorder {
	return &Recorder{failing: make(map[int64]bool)}
}

func (r *Recorder) Send(_ context.Context, recipientID int64, text string, markup *Markup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing[recipientID] {
		return ErrUndeliverable
	}
	r.messages = append(r.messages, Message{RecipientID: recipientID, Text: text, Markup: markup})
	return nil
}

// Fail makes every later Send to recipientID fail.
func (r *Recorder) Fail(recipientID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing[recipientID] = true
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// To returns the messages delivered to recipientID in order.
func (r *Recorder) To(recipientID int64) []Message {
	var out []Message
	for _, m := range r.Messages() {
		if m.RecipientID == recipientID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message to recipientID.
func (r *Recorder) Last(recipientID int64) (Message, bool) {
	msgs := r.To(recipientID)
	if len(msgs) == 0 {
		return Message{}, false
	}
	return msgs[len(msgs)-1], true
}

// Contains reports whether any message to recipientID contains substr.
func (r *Recorder) Contains(recipientID int64, substr string) bool {
	for _, m := range r.To(recipientID) {
		if strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
