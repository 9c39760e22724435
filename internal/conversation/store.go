package conversation

import (
	"context"
	"sync"
)

// Correlation carries the ids a form acts on.
type Correlation struct {
	TicketID uint64 `json:"ticket_id,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
	Rating   int    `json:"rating,omitempty"`
}

// State is one user's active form and the answers collected so far.
type State struct {
	Form        string            `json:"form"`
	Step        int               `json:"step"`
	Answers     map[string]string `json:"answers"`
	Correlation Correlation       `json:"correlation"`
}

// Store persists conversation states by user id. Get returns nil, nil when
// the user has no active form.
type Store interface {
	Get(ctx context.Context, userID int64) (*State, error)
	Put(ctx context.Context, userID int64, st *State) error
	Delete(ctx context.Context, userID int64) error
}

// MemoryStore keeps states in process memory for the lifetime of the process.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Get(_ context.Context, userID int64) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[userID]
	if !ok {
		return nil, nil
	}
	return st.clone(), nil
}

func (m *MemoryStore) Put(_ context.Context, userID int64, st *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = *st.clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}

// Len reports the number of users with an active form.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func (s *State) clone() *State {
	out := *s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	return &out
}
