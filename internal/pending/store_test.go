package pending

import (
	"testing"
	"time"

	"github.com/ucielsola/expense-tracker/internal/parser"
)

func TestStorePutGetDelete(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(1); ok {
		t.Fatal("empty store should have no pending transaction")
	}

	s.Put(1, &Transaction{
		Parsed:    parser.ParsedTransaction{Description: "coffee", Amount: 5},
		Choices:   []AccountChoice{{ID: "acc-1", Name: "Cash"}},
		CreatedAt: time.Now(),
	})

	tx, ok := s.Get(1)
	if !ok {
		t.Fatal("expected pending transaction")
	}
	if tx.Parsed.Description != "coffee" {
		t.Errorf("description = %q", tx.Parsed.Description)
	}

	// Mutating the returned copy must not affect the stored value.
	tx.Parsed.Description = "changed"
	again, _ := s.Get(1)
	if again.Parsed.Description != "coffee" {
		t.Error("Get must return a copy")
	}

	s.Delete(1)
	if _, ok := s.Get(1); ok {
		t.Error("Delete should remove the transaction")
	}
}

func TestStoreExpiry(t *testing.T) {
	s := NewStore()
	current := time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return current }

	s.Put(1, &Transaction{Parsed: parser.ParsedTransaction{Description: "coffee"}})

	current = current.Add(TTL - time.Second)
	if _, ok := s.Get(1); !ok {
		t.Error("entry within TTL should be returned")
	}

	current = current.Add(2 * time.Second)
	if _, ok := s.Get(1); ok {
		t.Error("entry past TTL should be dropped")
	}
}

func TestStoreReplacesPerChat(t *testing.T) {
	s := NewStore()
	s.Put(7, &Transaction{Parsed: parser.ParsedTransaction{Description: "first"}})
	s.Put(7, &Transaction{Parsed: parser.ParsedTransaction{Description: "second"}})

	tx, _ := s.Get(7)
	if tx.Parsed.Description != "second" {
		t.Errorf("description = %q, want the latest pending transaction", tx.Parsed.Description)
	}
}
