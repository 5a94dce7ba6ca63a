package mocks

import (
	"context"
	"sync"

	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven"
)

// MockNarrationEngine is a mock implementation of NarrationEngine for
// testing. Durations can be scripted per text; the default is one second
// per render.
type MockNarrationEngine struct {
	mu        sync.Mutex
	durations map[string]float64

	// Rendered records every text rendered, in call order.
	Rendered []string

	// MaxCharsValue is returned by MaxChars. Zero means unlimited.
	MaxCharsValue int

	// RenderFn overrides the default behavior when set.
	RenderFn func(text string, outPath string) (*driven.AudioAsset, error)
}

// NewMockNarrationEngine creates a new mock narration engine.
func NewMockNarrationEngine() *MockNarrationEngine {
	return &MockNarrationEngine{durations: make(map[string]float64)}
}

// SetDuration scripts the duration reported for a text.
func (m *MockNarrationEngine) SetDuration(text string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[text] = seconds
}

func (m *MockNarrationEngine) Render(ctx context.Context, text string, outPath string) (*driven.AudioAsset, error) {
	if m.RenderFn != nil {
		return m.RenderFn(text, outPath)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rendered = append(m.Rendered, text)

	d, ok := m.durations[text]
	if !ok {
		d = 1.0
	}
	return &driven.AudioAsset{Path: outPath, Duration: d}, nil
}

func (m *MockNarrationEngine) MaxChars() int { return m.MaxCharsValue }

func (m *MockNarrationEngine) Name() string { return "mock" }

// MockCaptionRenderer is a mock implementation of CaptionRenderer for testing.
type MockCaptionRenderer struct {
	mu sync.Mutex

	// Rendered records every caption text rendered, in call order.
	Rendered []string

	// FailOn makes rendering fail for a specific caption text.
	FailOn map[string]error

	RenderCaptionFn func(text string, outPath string) error
}

// NewMockCaptionRenderer creates a new mock caption renderer.
func NewMockCaptionRenderer() *MockCaptionRenderer {
	return &MockCaptionRenderer{FailOn: make(map[string]error)}
}

func (m *MockCaptionRenderer) RenderCaption(ctx context.Context, text string, outPath string) error {
	if m.RenderCaptionFn != nil {
		return m.RenderCaptionFn(text, outPath)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailOn[text]; ok {
		return err
	}
	m.Rendered = append(m.Rendered, text)
	return nil
}

// MockCompositor is a mock implementation of Compositor for testing.
type MockCompositor struct {
	mu sync.Mutex

	// Requests records every composition request.
	Requests []driven.CompositionRequest

	ComposeFn func(req driven.CompositionRequest) error
	ProbeFn   func(path string) (float64, error)
}

// NewMockCompositor creates a new mock compositor.
func NewMockCompositor() *MockCompositor {
	return &MockCompositor{}
}

func (m *MockCompositor) Compose(ctx context.Context, req driven.CompositionRequest) error {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.ComposeFn != nil {
		return m.ComposeFn(req)
	}
	return nil
}

func (m *MockCompositor) Probe(ctx context.Context, path string) (float64, error) {
	if m.ProbeFn != nil {
		return m.ProbeFn(path)
	}
	return 1.0, nil
}
