package services

import (
	"sort"
	"sync"
	"time"

	"github.com/quantfold/holdings/internal/domain"
)

// In-memory store fakes with error injection, used across the service tests.

type memLedger struct {
	mu        sync.Mutex
	recs      map[uint64]domain.TradeRecord
	next      uint64
	appendErr error
	getErr    error
	getNil    bool
	deleteErr error
}

func newMemLedger() *memLedger {
	return &memLedger{recs: make(map[uint64]domain.TradeRecord)}
}

func (m *memLedger) Append(rec domain.TradeRecord) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	m.next++
	rec.ID = m.next
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	rec.CreatedAt = time.Now()
	m.recs[rec.ID] = rec
	return rec.ID, nil
}

func (m *memLedger) Get(id uint64) (*domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.getNil {
		return nil, nil
	}
	rec, ok := m.recs[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memLedger) List() ([]domain.TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.TradeRecord, 0, len(m.recs))
	for _, rec := range m.recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memLedger) ListBySymbol(symbol string) ([]domain.TradeRecord, error) {
	all, _ := m.List()
	var out []domain.TradeRecord
	for _, rec := range all {
		if rec.Symbol == symbol {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memLedger) Delete(id uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	if _, ok := m.recs[id]; !ok {
		return false, nil
	}
	delete(m.recs, id)
	return true, nil
}

func (m *memLedger) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recs)
}

type memPositions struct {
	mu     sync.Mutex
	book   map[string]domain.Position
	putErr error
	getErr error
}

func newMemPositions() *memPositions {
	return &memPositions{book: make(map[string]domain.Position)}
}

func (m *memPositions) GetBySymbol(symbol string) (*domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	pos, ok := m.book[symbol]
	if !ok {
		return nil, nil
	}
	return &pos, nil
}

func (m *memPositions) Put(pos domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.book[pos.Symbol] = pos
	return nil
}

func (m *memPositions) DeleteBySymbol(symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.book, symbol)
	return nil
}

func (m *memPositions) ListAll() ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.book))
	for _, pos := range m.book {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
