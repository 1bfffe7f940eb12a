// Package testhelpers routes application logs into the test log so that they are shown only for failing tests.
package testhelpers

import (
	"bytes"
	"io"
	"sync/atomic"
	"testing"
)

// Writer forwards each write to t.Log.
type Writer struct {
	t    *testing.T
	done atomic.Bool
}

// NewWriter returns a Writer for t. Writing after t has finished panics, which points at a server or a plan
// generation goroutine that outlived its test.
func NewWriter(t *testing.T) io.Writer {
	w := &Writer{t: t, done: atomic.Bool{}}
	t.Cleanup(func() {
		w.done.Store(true)
	})
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		panic("testwriter: write after test completion, is a goroutine still running after server shutdown?")
	}
	// t.Log adds its own newline.
	if line := bytes.TrimSuffix(p, []byte("\n")); len(line) > 0 {
		w.t.Log(string(line))
	}
	return len(p), nil
}
