package report

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Emitter receives progress events.
type Emitter interface {
	Emit(Event) error
}

// NDJSONEmitter writes one JSON object per line. It flushes after every event
// when the writer is an http.Flusher. Safe for concurrent use.
type NDJSONEmitter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	flusher http.Flusher
}

// NewNDJSONEmitter creates an emitter writing to w.
func NewNDJSONEmitter(w io.Writer) *NDJSONEmitter {
	e := &NDJSONEmitter{enc: json.NewEncoder(w)}
	e.enc.SetEscapeHTML(false)
	if f, ok := w.(http.Flusher); ok {
		e.flusher = f
	}
	return e
}

// Emit writes the event as a single line.
func (e *NDJSONEmitter) Emit(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enc.Encode(ev); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

// FuncEmitter adapts a function to Emitter.
type FuncEmitter func(Event) error

// Emit calls f.
func (f FuncEmitter) Emit(ev Event) error {
	return f(ev)
}

// Discard drops every event.
var Discard Emitter = FuncEmitter(func(Event) error { return nil })

// Recorder keeps every event in memory. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event.
func (r *Recorder) Emit(ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
