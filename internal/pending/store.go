// Package pending holds transactions that are waiting on user input,
// such as an expense whose source account still has to be picked.
package pending

import (
	"sync"
	"time"

	"github.com/ucielsola/expense-tracker/internal/parser"
)

// AccountChoice is one selectable account offered to the user.
type AccountChoice struct {
	ID   string
	Name string
}

// Transaction is a parsed transaction parked until the user answers.
type Transaction struct {
	Parsed    parser.ParsedTransaction
	Choices   []AccountChoice
	CreatedAt time.Time
}

// TTL bounds how long a transaction may wait for an answer.
const TTL = 10 * time.Minute

// Store keeps pending transactions in memory, keyed by chat ID. It is
// safe for concurrent use. Data is lost on restart, which is acceptable
// for an interactive prompt the user can simply repeat.
type Store struct {
	mu      sync.RWMutex
	pending map[int64]*Transaction
	now     func() time.Time
}

func NewStore() *Store {
	return &Store{
		pending: make(map[int64]*Transaction),
		now:     time.Now,
	}
}

// Put parks a transaction for the chat, replacing any previous one. At
// most one transaction per chat can be pending.
func (s *Store) Put(chatID int64, tx *Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *tx
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = s.now()
	}
	s.pending[chatID] = &cp
}

// Get returns a copy of the chat's pending transaction, if any. An
// entry older than TTL is dropped and reported absent.
func (s *Store) Get(chatID int64) (*Transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.pending[chatID]
	if !ok {
		return nil, false
	}
	if s.now().Sub(tx.CreatedAt) >= TTL {
		delete(s.pending, chatID)
		return nil, false
	}
	cp := *tx
	return &cp, true
}

// Delete removes the chat's pending transaction.
func (s *Store) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, chatID)
}
