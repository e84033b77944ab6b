// Package positions persists the aggregate position per instrument symbol.
// The symbol is the unique key; at most one live row exists per symbol.
package positions

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/quantfold/holdings/internal/domain"
)

const (
	// DefaultDir is used when no positions directory is configured.
	DefaultDir = "./wal/positions"

	segmentThreshold = 1000
	maxSegments      = 100

	positionTombstoneKeyPrefix = "position_tombstone_"
	positionKeyPrefix          = "position_"
)

// WALStore is a keyed position store backed by a WAL. Every Put writes the
// full row; replay applies writes in order so the last state wins.
type WALStore struct {
	wal       *gowal.Wal
	mu        sync.RWMutex
	positions map[string]domain.Position
}

// NewWALStore opens (or creates) the position book in dir and replays it.
func NewWALStore(dir string, syncWrites bool) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "positions_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: syncWrites,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init positions WAL")
	}

	s := &WALStore{
		wal:       wal,
		positions: make(map[string]domain.Position),
	}

	for msg := range wal.Iterator() {
		switch {
		case strings.HasPrefix(msg.Key, positionTombstoneKeyPrefix):
			delete(s.positions, strings.TrimPrefix(msg.Key, positionTombstoneKeyPrefix))
		case strings.HasPrefix(msg.Key, positionKeyPrefix):
			var pos domain.Position
			if err := json.Unmarshal(msg.Value, &pos); err != nil {
				return nil, errors.Wrap(err, "decode position")
			}
			s.positions[pos.Symbol] = pos
		}
	}

	return s, nil
}

// GetBySymbol returns the position for a symbol, or nil if none is held.
func (s *WALStore) GetBySymbol(symbol string) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[symbol]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

// Put upserts the position row for its symbol.
func (s *WALStore) Put(pos domain.Position) error {
	if pos.Symbol == "" {
		return errors.New("position symbol is required")
	}

	payload, err := json.Marshal(pos)
	if err != nil {
		return errors.Wrap(err, "marshal position")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := positionKeyPrefix + pos.Symbol
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, payload); err != nil {
		return errors.Wrap(err, "write position")
	}

	s.positions[pos.Symbol] = pos

	return nil
}

// DeleteBySymbol removes the position row for a symbol. Deleting an absent
// symbol is a no-op.
func (s *WALStore) DeleteBySymbol(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[symbol]; !ok {
		return nil
	}

	key := positionTombstoneKeyPrefix + symbol
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, []byte(symbol)); err != nil {
		return errors.Wrap(err, "write position tombstone")
	}

	delete(s.positions, symbol)

	return nil
}

// ListAll returns every live position sorted by symbol.
func (s *WALStore) ListAll() ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Position, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })

	return out, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	return s.wal.Close()
}
