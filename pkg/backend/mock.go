package backend

import (
	"context"
	"sync"
)

// MockBackend is a scriptable Backend used by tests and by the end-to-end
// scenarios in spec §8 (CoT parsing, ReAct tool loop) that drive the
// runtime against canned generate() responses rather than a real provider.
type MockBackend struct {
	mu        sync.Mutex
	responses []string
	next      int
	calls     []string
	genFunc   func(prompt string) (string, error)
}

// NewMockBackend returns an empty MockBackend; configure it with
// SetResponses or SetGenerateFunc before use.
func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

// SetResponses queues a fixed sequence of generate() replies, returned in
// order on successive calls (spec §8 scenario 5's two-turn script).
func (m *MockBackend) SetResponses(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.next = 0
}

// SetGenerateFunc installs a callback driving generate() dynamically,
// taking precedence over any queued responses.
func (m *MockBackend) SetGenerateFunc(f func(prompt string) (string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.genFunc = f
}

// Calls returns every prompt passed to Generate, in order, for assertions.
func (m *MockBackend) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockBackend) Generate(_ context.Context, prompt string, _ GenerateOptions) (GenerateResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, prompt)
	fn := m.genFunc
	var text string
	var err error
	if fn != nil {
		m.mu.Unlock()
		text, err = fn(prompt)
	} else {
		if m.next < len(m.responses) {
			text = m.responses[m.next]
			m.next++
		}
		m.mu.Unlock()
	}
	if err != nil {
		return GenerateResult{}, err
	}
	return GenerateResult{Text: text}, nil
}

func (m *MockBackend) Embed(_ context.Context, text string, _ GenerateOptions) (EmbedResult, error) {
	vec := make([]float64, 8)
	for i, r := range text {
		vec[i%len(vec)] += float64(r)
	}
	return EmbedResult{Vector: vec}, nil
}

func (m *MockBackend) Stream(_ context.Context, _ string, _ GenerateOptions) (<-chan Chunk, error) {
	return nil, ErrStreamUnsupported
}
