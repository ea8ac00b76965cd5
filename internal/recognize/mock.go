package recognize

import (
	"context"
	"sync"
	"time"

	"slipstream/internal/contentstore"
	"slipstream/internal/preprocess"
)

// MockEngineID identifies results produced by the deterministic test engine.
const MockEngineID = "mock"

// Mock is a deterministic recognition backend: identical input bytes always
// yield identical text, enabling exact-match assertions in pipeline tests.
type Mock struct {
	mu     sync.Mutex
	text   string
	byHash map[string]string
	err    error
	calls  int
}

// NewMock returns a backend that answers every input with text.
func NewMock(text string) *Mock {
	return &Mock{text: text, byHash: make(map[string]string)}
}

// SetTextForContent registers text returned for inputs whose bytes hash to
// the same value as data.
func (m *Mock) SetTextForContent(data []byte, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byHash[contentstore.HashBytes(data)] = text
}

// Fail makes every subsequent Recognize call return err.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls reports how many times Recognize has been invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) Recognize(_ context.Context, input preprocess.Result) (Result, error) {
	start := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Result{}, m.err
	}
	text := m.text
	if mapped, ok := m.byHash[contentstore.HashBytes(input.Data)]; ok {
		text = mapped
	}
	return Result{EngineID: MockEngineID, Text: text, Duration: time.Since(start)}, nil
}
