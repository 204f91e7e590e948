package oauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tumbsky/tumbsky/internal/common"
)

type memStates struct {
	mu   sync.Mutex
	data map[string][]byte
	exp  map[string]time.Time
	now  func() time.Time
}

func newMemStates() *memStates {
	return &memStates{data: map[string][]byte{}, exp: map[string]time.Time{}, now: time.Now}
}

func (m *memStates) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if !m.exp[key].After(m.now()) {
		delete(m.data, key)
		delete(m.exp, key)
		return nil, common.ErrorNotFound
	}
	return v, nil
}

func (m *memStates) Set(_ context.Context, key string, value []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.exp[key] = expiresAt
	return nil
}

func (m *memStates) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.exp, key)
	return nil
}

func (m *memStates) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

type memSessions struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	deletes int
}

func newMemSessions() *memSessions {
	return &memSessions{data: map[string][]byte{}}
}

func (m *memSessions) Get(_ context.Context, did string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[did]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return v, nil
}

func (m *memSessions) Set(_ context.Context, did string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[did] = value
	return nil
}

func (m *memSessions) Delete(_ context.Context, did string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, did)
	return nil
}

func (m *memSessions) has(did string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[did]
	return ok
}

var errStoreDown = errors.New("store down")
