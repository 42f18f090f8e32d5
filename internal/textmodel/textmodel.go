// Package textmodel provides the in-memory editor host used by the terminal
// UI and the one-shot exec command.
package textmodel

import (
	"sync"

	"pkt.systems/mongoui/core"
)

// Model is an in-memory text model.
type Model struct {
	host *Host
	seq  uint64
	lang core.Language

	mu       sync.Mutex
	text     string
	disposed bool
}

// Value returns the current text.
func (m *Model) Value() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// SetValue replaces the text. Writes to a disposed model are ignored.
func (m *Model) SetValue(text string) {
	m.mu.Lock()
	if !m.disposed {
		m.text = text
	}
	m.mu.Unlock()
}

// Dispose releases the model from its host.
func (m *Model) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.mu.Unlock()
	m.host.release(m)
}

// Disposed reports whether Dispose was called.
func (m *Model) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// Language returns the language the model was created with.
func (m *Model) Language() core.Language {
	return m.lang
}

// Host creates models and tracks the ones that are still alive.
type Host struct {
	mu   sync.Mutex
	seq  uint64
	live map[uint64]*Model
}

// NewHost constructs an empty host.
func NewHost() *Host {
	return &Host{live: make(map[uint64]*Model)}
}

// CreateModel implements core.EditorHost.
func (h *Host) CreateModel(text string, lang core.Language) core.TextModel {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	model := &Model{host: h, seq: h.seq, lang: lang, text: text}
	h.live[model.seq] = model
	return model
}

// Live returns the number of models that have not been disposed.
func (h *Host) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

func (h *Host) release(m *Model) {
	h.mu.Lock()
	delete(h.live, m.seq)
	h.mu.Unlock()
}

// View records the models currently shown and reports every change to an
// optional callback.
type View struct {
	mu       sync.Mutex
	input    core.TextModel
	output   core.TextModel
	onChange func()
}

// NewView constructs a view. onChange may be nil; it is called without the
// view lock held.
func NewView(onChange func()) *View {
	return &View{onChange: onChange}
}

// SetInputModel implements core.EditorView.
func (v *View) SetInputModel(model core.TextModel) {
	v.mu.Lock()
	v.input = model
	cb := v.onChange
	v.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// SetOutputModel implements core.EditorView.
func (v *View) SetOutputModel(model core.TextModel) {
	v.mu.Lock()
	v.output = model
	cb := v.onChange
	v.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Input returns the shown input model, or nil.
func (v *View) Input() core.TextModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

// Output returns the shown output model, or nil.
func (v *View) Output() core.TextModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.output
}

// InputText returns the shown input text, or the empty string.
func (v *View) InputText() string {
	if model := v.Input(); model != nil {
		return model.Value()
	}
	return ""
}

// OutputText returns the shown output text, or the empty string.
func (v *View) OutputText() string {
	if model := v.Output(); model != nil {
		return model.Value()
	}
	return ""
}
