package llm

import (
	"context"
	"strings"
	"sync"

	"advisorbrief/internal/core"
)

// MockCompleter is a scripted Completer for tests and dry runs. Responses are matched
// by the first registered substring found in the prompt; otherwise Default is returned.
type MockCompleter struct {
	mu      sync.Mutex
	rules   []mockRule
	Default string
	Err     error
	prompts []string
}

type mockRule struct {
	contains string
	response string
}

// NewMockCompleter creates a mock answering def to any unmatched prompt.
func NewMockCompleter(def string) *MockCompleter {
	return &MockCompleter{Default: def}
}

// On registers a response for prompts containing substr.
func (m *MockCompleter) On(substr, response string) *MockCompleter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{contains: substr, response: response})
	return m
}

// Complete records the prompt and returns the scripted response.
func (m *MockCompleter) Complete(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.Err != nil {
		return "", core.External(serviceName, "mock", m.Err)
	}
	for _, r := range m.rules {
		if strings.Contains(prompt, r.contains) {
			return r.response, nil
		}
	}
	return m.Default, nil
}

// Calls returns how many prompts were sent.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of every prompt received, in order.
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
