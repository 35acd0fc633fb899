package renderer

import (
	"bytes"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/spaghettifunk/anima-buffers/engine/core"
	"github.com/spaghettifunk/anima-buffers/engine/renderer/headless"
)

func TestMain(m *testing.M) {
	core.SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func newDevice() *headless.Device {
	return headless.NewDevice(headless.DefaultLimits)
}

// captureLog collects everything the engine logger writes until the test ends.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	core.SetLogOutput(&buf)
	t.Cleanup(func() { core.SetLogOutput(io.Discard) })
	return &buf
}

// requirePrecondition runs f and checks that it panics with a broken
// precondition.
func requirePrecondition(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("expected a precondition panic")
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("panic value %v is not an error", r)
		}
		if !errors.Is(err, core.ErrPrecondition) {
			t.Fatalf("panic = %v, want %v", err, core.ErrPrecondition)
		}
	}()
	f()
}
