// Package ledger persists the append-only history of trade records. The
// WAL is the audit trail of how positions were derived; positions are a
// materialized view over it, never the other way around.
package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/quantfold/holdings/internal/domain"
)

const (
	// DefaultDir is used when no ledger directory is configured.
	DefaultDir = "./wal/ledger"

	segmentThreshold = 1000
	maxSegments      = 100

	tradeTombstoneKeyPrefix = "trade_tombstone_"
	tradeKeyPrefix          = "trade_"
)

// WALStore is an append-only trade store backed by a WAL. All records are
// replayed into memory at open; reads never touch disk.
type WALStore struct {
	wal     *gowal.Wal
	mu      sync.RWMutex
	records map[uint64]domain.TradeRecord
	nextID  uint64
}

// NewWALStore opens (or creates) the ledger in dir and replays its history.
func NewWALStore(dir string, syncWrites bool) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "ledger_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: syncWrites,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	s := &WALStore{
		wal:     wal,
		records: make(map[uint64]domain.TradeRecord),
	}

	for msg := range wal.Iterator() {
		switch {
		case strings.HasPrefix(msg.Key, tradeTombstoneKeyPrefix):
			var id uint64
			if err := json.Unmarshal(msg.Value, &id); err != nil {
				return nil, errors.Wrap(err, "decode ledger tombstone")
			}
			delete(s.records, id)
		case strings.HasPrefix(msg.Key, tradeKeyPrefix):
			var rec domain.TradeRecord
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				return nil, errors.Wrap(err, "decode trade record")
			}
			s.records[rec.ID] = rec
			if rec.ID > s.nextID {
				s.nextID = rec.ID
			}
		}
	}

	return s, nil
}

// Append assigns the next id, stamps the record and writes it to the WAL.
func (s *WALStore) Append(rec domain.TradeRecord) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = now
	}
	rec.CreatedAt = now
	rec.ID = s.nextID + 1

	payload, err := json.Marshal(rec)
	if err != nil {
		return 0, errors.Wrap(err, "marshal trade record")
	}

	key := fmt.Sprintf("%s%d", tradeKeyPrefix, rec.ID)
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, payload); err != nil {
		return 0, errors.Wrap(err, "write trade record")
	}

	s.records[rec.ID] = rec
	s.nextID = rec.ID

	return rec.ID, nil
}

// Get returns the record with the given id, or nil if it does not exist.
func (s *WALStore) Get(id uint64) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// List returns every live record in append order.
func (s *WALStore) List() ([]domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TradeRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// ListBySymbol returns the live records for one symbol in append order.
func (s *WALStore) ListBySymbol(symbol string) ([]domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.TradeRecord
	for _, rec := range s.records {
		if rec.Symbol == symbol {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// Delete removes a record by writing a tombstone. Returns false when the id
// is unknown. Deleting a trade does not reverse its effect on the position
// aggregate; callers relying on that consistency must not use this.
func (s *WALStore) Delete(id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}

	payload, err := json.Marshal(id)
	if err != nil {
		return false, errors.Wrap(err, "marshal ledger tombstone")
	}

	key := fmt.Sprintf("%s%d", tradeTombstoneKeyPrefix, id)
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, payload); err != nil {
		return false, errors.Wrap(err, "write ledger tombstone")
	}

	delete(s.records, id)

	return true, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	return s.wal.Close()
}
