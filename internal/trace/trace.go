// Package trace decouples the retargeting core from any concrete logger.
// Core packages report through a Tracer; main wires in the log-backed
// implementation and tests use the no-op.
package trace

import (
	"fmt"
	"log"
	"sort"
	"strings"
)

// Tracer receives diagnostic events from the pipeline.
type Tracer interface {
	// Event records a named occurrence with optional key/value fields.
	Event(name string, fields map[string]any)

	// Error records a failure the pipeline recovered from.
	Error(name string, err error, fields map[string]any)
}

// nop discards all events.
type nop struct{}

func (nop) Event(string, map[string]any)        {}
func (nop) Error(string, error, map[string]any) {}

// Nop returns a Tracer that discards everything.
func Nop() Tracer {
	return nop{}
}

// logTracer writes events through the standard library logger.
type logTracer struct {
	logger *log.Logger
}

// NewLog returns a Tracer backed by the given logger. A nil logger uses
// the process default.
func NewLog(logger *log.Logger) Tracer {
	if logger == nil {
		logger = log.Default()
	}
	return &logTracer{logger: logger}
}

func formatFields(fields map[string]any) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}

func (t *logTracer) Event(name string, fields map[string]any) {
	t.logger.Printf("%s%s", name, formatFields(fields))
}

func (t *logTracer) Error(name string, err error, fields map[string]any) {
	t.logger.Printf("%s error=%v%s", name, err, formatFields(fields))
}
