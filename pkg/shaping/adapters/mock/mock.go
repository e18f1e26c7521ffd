package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/engramkit/engram/pkg/errors"
	"github.com/engramkit/engram/pkg/log"
	"github.com/engramkit/engram/pkg/shaping"
)

// Call records one Shape invocation on the mock shaper.
type Call struct {
	// Task is the caller's task description.
	Task string

	// Block is the deterministic block handed to the shaper.
	Block string

	// Budget is the requested character budget.
	Budget int
}

// MockShaper implements the shaping.Shaper interface with canned
// responses.
type MockShaper struct {
	// cannedResponses maps block substrings to predetermined responses
	cannedResponses map[string]string

	// defaultResponse is returned when no matching canned response is found
	defaultResponse string

	// exactMatch determines if block matching is exact or uses Contains
	exactMatch bool

	// shouldError indicates if the shaper should return errors
	shouldError bool

	// mutex protects the maps from concurrent access
	mutex sync.RWMutex

	// callHistory records all calls to Shape
	callHistory []Call
}

// MockOption is a function that configures a MockShaper.
type MockOption func(*MockShaper)

// WithDefaultResponse sets the default response for the mock shaper.
func WithDefaultResponse(resp string) MockOption {
	return func(m *MockShaper) {
		m.defaultResponse = resp
	}
}

// WithExactMatch configures whether the mock shaper uses exact matching.
func WithExactMatch(exact bool) MockOption {
	return func(m *MockShaper) {
		m.exactMatch = exact
	}
}

// WithShouldError configures whether the mock shaper returns errors.
func WithShouldError(shouldErr bool) MockOption {
	return func(m *MockShaper) {
		m.shouldError = shouldErr
	}
}

// NewMockShaper creates a new MockShaper with the given options.
func NewMockShaper(opts ...MockOption) *MockShaper {
	m := &MockShaper{
		cannedResponses: make(map[string]string),
		defaultResponse: "This is a mock shaped block",
		exactMatch:      false,
		shouldError:     false,
		callHistory:     make([]Call, 0),
	}

	for _, opt := range opts {
		opt(m)
	}

	log.Debug("Created mock shaper", "exact_match", m.exactMatch)
	return m
}

// Shape implements the shaping.Shaper interface.
func (m *MockShaper) Shape(ctx context.Context, task, block string, budget int, opts ...shaping.Option) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callHistory = append(m.callHistory, Call{
		Task:   task,
		Block:  block,
		Budget: budget,
	})

	if m.shouldError {
		return "", errors.Wrap(errors.ErrShapingFailure, "mock shaper error")
	}

	options := shaping.DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	log.Debug("Shaping block with mock shaper",
		"block_length", len(block),
		"budget", budget,
		"temperature", options.Temperature,
	)

	if m.exactMatch {
		if response, ok := m.cannedResponses[block]; ok {
			return response, nil
		}
	} else {
		for key, response := range m.cannedResponses {
			if strings.Contains(block, key) {
				return response, nil
			}
		}
	}

	return m.defaultResponse, nil
}

// AddResponse adds a canned response for a specific block.
func (m *MockShaper) AddResponse(block, response string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.cannedResponses[block] = response
}

// SetDefaultResponse sets the default response.
func (m *MockShaper) SetDefaultResponse(response string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.defaultResponse = response
}

// SetExactMatch configures whether the shaper uses exact matching.
func (m *MockShaper) SetExactMatch(exact bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.exactMatch = exact
}

// SetShouldError configures whether the shaper returns errors.
func (m *MockShaper) SetShouldError(shouldErr bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.shouldError = shouldErr
}

// GetCallHistory returns a copy of the call history.
func (m *MockShaper) GetCallHistory() []Call {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	history := make([]Call, len(m.callHistory))
	copy(history, m.callHistory)

	return history
}

// ClearHistory clears the call history.
func (m *MockShaper) ClearHistory() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.callHistory = make([]Call, 0)
}
