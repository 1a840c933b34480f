// Package testutil provides in-memory fakes and data builders for
// pipeline tests: a channel-backed event bus, a pass-through query
// engine, and device row builders.
package testutil

import (
	"context"
	"sync"

	"github.com/c360/alarmstreams/query"
	atypes "github.com/c360/alarmstreams/types/alarm"
)

// MemoryBus is an in-memory eventbus.Bus. Subjects match exactly or via
// a trailing NATS-style wildcard segment ("*" or ">").
type MemoryBus struct {
	mu        sync.Mutex
	subs      []*memorySub
	published []PublishedRecord
	closed    bool
}

// PublishedRecord captures one Publish call.
type PublishedRecord struct {
	Subject string
	Record  atypes.Record
}

type memorySub struct {
	subject string
	ch      chan atypes.Row
	done    chan struct{}
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

// Subscribe registers a subscriber for a subject pattern.
func (b *MemoryBus) Subscribe(ctx context.Context, _ string, subject string) (<-chan atypes.Row, context.CancelFunc, error) {
	sub := &memorySub{
		subject: subject,
		ch:      make(chan atypes.Row, 256),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			for i, s := range b.subs {
				if s == sub {
					b.subs = append(b.subs[:i], b.subs[i+1:]...)
					break
				}
			}
			b.mu.Unlock()
			close(sub.done)
			close(sub.ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-sub.done:
		}
	}()

	return sub.ch, cancel, nil
}

// Publish records the call for later assertions.
func (b *MemoryBus) Publish(_ context.Context, subject string, record atypes.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, PublishedRecord{Subject: subject, Record: record.Clone()})
	return nil
}

// Close marks the bus closed.
func (b *MemoryBus) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Emit delivers a row to every subscriber whose pattern matches the
// subject.
func (b *MemoryBus) Emit(subject string, row atypes.Row) {
	b.mu.Lock()
	subs := make([]*memorySub, 0, len(b.subs))
	for _, sub := range b.subs {
		if SubjectMatches(sub.subject, subject) {
			subs = append(subs, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- row:
		case <-sub.done:
		}
	}
}

// Published returns a copy of all published records.
func (b *MemoryBus) Published() []PublishedRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]PublishedRecord, len(b.published))
	copy(out, b.published)
	return out
}

// SubscriberCount returns the number of live subscriptions.
func (b *MemoryBus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// SubjectMatches implements NATS-style subject matching with "*"
// (one segment) and ">" (remaining segments).
func SubjectMatches(pattern, subject string) bool {
	p := splitSubject(pattern)
	s := splitSubject(subject)

	for i, seg := range p {
		if seg == ">" {
			return true
		}
		if i >= len(s) {
			return false
		}
		if seg != "*" && seg != s[i] {
			return false
		}
	}
	return len(p) == len(s)
}

func splitSubject(subject string) []string {
	var parts []string
	start := 0
	for i := 0; i <= len(subject); i++ {
		if i == len(subject) || subject[i] == '.' {
			parts = append(parts, subject[start:i])
			start = i + 1
		}
	}
	return parts
}

// PassThroughEngine compiles every query into a query that forwards all
// rows unchanged. It records compiled texts for assertions.
type PassThroughEngine struct {
	mu    sync.Mutex
	texts []string
}

// NewPassThroughEngine creates an engine that matches everything.
func NewPassThroughEngine() *PassThroughEngine {
	return &PassThroughEngine{}
}

// Compile records the text and returns a forwarding query.
func (e *PassThroughEngine) Compile(text string) (query.Query, error) {
	e.mu.Lock()
	e.texts = append(e.texts, text)
	e.mu.Unlock()
	return passThroughQuery{}, nil
}

// CompiledTexts returns every text passed to Compile.
func (e *PassThroughEngine) CompiledTexts() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.texts))
	copy(out, e.texts)
	return out
}

type passThroughQuery struct{}

func (passThroughQuery) Run(ctx context.Context, src query.Source, _ []any) (<-chan atypes.Row, error) {
	in, err := src(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan atypes.Row)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case row, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- row:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
