// Package history keeps the short list of recently queried cities.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Key is the slot the history list is persisted under.
	Key = "skycast_history"

	// MaxEntries caps the list; the oldest entry falls off first.
	MaxEntries = 5
)

// ErrSlotEmpty is returned by a Slot when nothing has been stored under a key.
var ErrSlotEmpty = errors.New("slot empty")

// Slot is a session-durable key-value cell.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Entry is one recently queried city. Timestamp is Unix milliseconds.
type Entry struct {
	ID        string `json:"id"`
	City      string `json:"city"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the entry timestamp as a time.Time.
func (e Entry) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// Record returns a new list with city at the front. Any entry for the same
// city (case-insensitive) is removed first and the result is capped at
// MaxEntries. The input slice is not modified.
func Record(entries []Entry, city string, now time.Time) []Entry {
	out := make([]Entry, 0, MaxEntries)
	out = append(out, Entry{
		ID:        newID(),
		City:      city,
		Timestamp: now.UnixMilli(),
	})
	for _, e := range entries {
		if len(out) == MaxEntries {
			break
		}
		if strings.EqualFold(e.City, city) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Store loads and persists the history list through a Slot.
type Store struct {
	slot Slot
	key  string
}

func NewStore(slot Slot) *Store {
	return &Store{slot: slot, key: Key}
}

// Load returns the persisted list. A missing, unreadable or malformed slot
// yields an empty list; Load never fails.
func (s *Store) Load(ctx context.Context) []Entry {
	data, err := s.slot.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrSlotEmpty) {
			log.Printf("history: load %s: %v", s.key, err)
		}
		return []Entry{}
	}

	var raw []Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Printf("history: discarding malformed %s: %v", s.key, err)
		return []Entry{}
	}

	entries := make([]Entry, 0, MaxEntries)
	for _, e := range raw {
		if len(entries) == MaxEntries {
			break
		}
		if strings.TrimSpace(e.City) == "" || containsCity(entries, e.City) {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Persist writes the list to the slot.
func (s *Store) Persist(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return s.slot.Set(ctx, s.key, data)
}

func containsCity(entries []Entry, city string) bool {
	for _, e := range entries {
		if strings.EqualFold(e.City, city) {
			return true
		}
	}
	return false
}
