package embedsdk

import "sync"

// Container receives the rendered markup of a report, the way a DOM element
// receives innerHTML.
type Container interface {
	SetHTML(html string)
}

// Frame is an in-memory Container. It is safe for concurrent use so HTTP
// handlers can read the latest render while a role change re-renders.
type Frame struct {
	mu      sync.RWMutex
	html    string
	renders int
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{}
}

// SetHTML replaces the frame content.
func (f *Frame) SetHTML(html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html = html
	f.renders++
}

// HTML returns the last rendered markup.
func (f *Frame) HTML() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.html
}

// Renders returns how many times the frame has been written.
func (f *Frame) Renders() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.renders
}
