package intent

import (
	"context"
	"sync"
)

// Source produces one intent record per call, blocking until the audience
// has said something (or stayed silent long enough).
type Source interface {
	Detect(ctx context.Context) (Record, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Record, error)

// Detect calls f.
func (f SourceFunc) Detect(ctx context.Context) (Record, error) { return f(ctx) }

// Scripted replays a fixed list of records, then returns ErrScriptExhausted.
type Scripted struct {
	mu      sync.Mutex
	records []Record
	errs    map[int]error
	calls   int
	next    int
}

// NewScripted creates a source serving records in order.
func NewScripted(records ...Record) *Scripted {
	return &Scripted{records: records, errs: map[int]error{}}
}

// FailAt makes call number i (0-based) return err. Records are not
// consumed by failing calls.
func (s *Scripted) FailAt(i int, err error) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[i] = err
	return s
}

// Detect returns the next scripted record.
func (s *Scripted) Detect(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	call := s.calls
	s.calls++
	if err, ok := s.errs[call]; ok {
		return Record{}, err
	}
	if s.next >= len(s.records) {
		return Record{}, ErrScriptExhausted
	}
	r := s.records[s.next]
	s.next++
	return r, nil
}

// Remaining returns how many records are still queued.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records) - s.next
}

var _ Source = (*Scripted)(nil)
