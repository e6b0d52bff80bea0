package history

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chart_interpreter/interpreter"
)

const (
	StorageKey = "qimen_history_records"
	MaxRecords = 50
)

// Store keeps the newest-first history list under one key.
// Save, Delete and Clear hold mu across their read-modify-write.
type Store struct {
	mu    sync.Mutex
	kv    KV
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithIDFunc(f func() string) StoreOption {
	return func(s *Store) { s.newID = f }
}

func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func NewStore(kv KV, opts ...StoreOption) *Store {
	s := &Store{kv: kv, log: zap.NewNop(), now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Records returns the stored list; missing or corrupt data yields an empty list.
func (s *Store) Records(ctx context.Context) []Record {
	data, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		s.log.Error("failed to load history", zap.Error(err))
		return []Record{}
	}
	if len(data) == 0 {
		return []Record{}
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Error("failed to load history", zap.Error(err))
		return []Record{}
	}
	if records == nil {
		return []Record{}
	}
	return records
}

// Get looks up one record by id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	for _, r := range s.Records(ctx) {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Save prepends a new record and keeps the latest MaxRecords. When the full
// write does not fit, the new record is stored without its images. The
// returned record always carries the original input.
func (s *Store) Save(ctx context.Context, input interpreter.UserInput, result string) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.Records(ctx)
	rec := Record{
		ID:        s.newID(),
		Timestamp: s.now().UnixMilli(),
		Input:     input,
		Result:    result,
	}

	if err := s.write(ctx, prepend(rec, records)); err != nil {
		s.log.Warn("history storage full, saving without images", zap.Error(err), zap.String("id", rec.ID))
		stripped := rec
		stripped.Input = input.StripImages()
		if err := s.write(ctx, prepend(stripped, records)); err != nil {
			s.log.Error("failed to save history", zap.Error(err), zap.String("id", rec.ID))
		}
	}
	return rec
}

// Delete removes the record with id and returns the remaining list.
func (s *Store) Delete(ctx context.Context, id string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.Records(ctx)
	updated := make([]Record, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			updated = append(updated, r)
		}
	}
	if err := s.write(ctx, updated); err != nil {
		return records, err
	}
	return updated, nil
}

// Clear removes all stored records.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Delete(ctx, StorageKey)
}

func (s *Store) write(ctx context.Context, records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, StorageKey, data)
}

func prepend(rec Record, records []Record) []Record {
	out := make([]Record, 0, min(len(records)+1, MaxRecords))
	out = append(out, rec)
	for _, r := range records {
		if len(out) == MaxRecords {
			break
		}
		out = append(out, r)
	}
	return out
}
