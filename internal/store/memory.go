package store

import (
	"context"
	"sync"
	"time"
)

// Memory keeps the snapshot in process memory.
type Memory struct {
	origin string

	mu       sync.Mutex
	data     []byte
	watchers map[chan Change]struct{}
	closed   bool
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		origin:   NewOrigin(),
		watchers: make(map[chan Change]struct{}),
	}
}

func (m *Memory) Origin() string { return m.origin }

func (m *Memory) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *Memory) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data = append([]byte(nil), data...)
	c := Change{Origin: m.origin, At: time.Now()}
	for ch := range m.watchers {
		notify(ch, c)
	}
	return nil
}

func (m *Memory) Watch(ctx context.Context) (<-chan Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	ch := make(chan Change, 1)
	m.watchers[ch] = struct{}{}
	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.watchers[ch]; ok {
			delete(m.watchers, ch)
			close(ch)
		}
	}()
	return ch, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for ch := range m.watchers {
		delete(m.watchers, ch)
		close(ch)
	}
	return nil
}
