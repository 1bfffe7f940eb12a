package flightrecorder_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/myrjola/velocoach/internal/flightrecorder"
	"github.com/myrjola/velocoach/internal/testhelpers"
)

// fakeClock is advanced manually by the tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, maxTraces int) (*flightrecorder.Service, *fakeClock, string) {
	t.Helper()
	traceDir := filepath.Join(t.TempDir(), "traces")
	clock := &fakeClock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	service, err := flightrecorder.New(flightrecorder.Config{
		Logger:          testhelpers.NewLogger(testhelpers.NewWriter(t)),
		MinAge:          0,
		MaxBytes:        0,
		MaxTraces:       maxTraces,
		TracesDirectory: traceDir,
		Now:             clock.Now,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err = service.Start(t.Context()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		service.Stop(t.Context())
	})
	return service, clock, traceDir
}

func traceFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read trace directory: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names
}

func TestNew_validation(t *testing.T) {
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	//nolint:exhaustruct // zero values select the defaults.
	tests := []struct {
		name string
		cfg  flightrecorder.Config
	}{
		{name: "missing logger", cfg: flightrecorder.Config{TracesDirectory: t.TempDir()}},
		{name: "missing directory", cfg: flightrecorder.Config{Logger: logger}},
		{name: "directory is a file", cfg: flightrecorder.Config{Logger: logger, TracesDirectory: file}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := flightrecorder.New(tt.cfg); err == nil {
				t.Error("New() succeeded, want error")
			}
		})
	}
}

func TestService_Capture(t *testing.T) {
	service, _, traceDir := newTestService(t, 0)

	service.Capture(t.Context(), flightrecorder.ReasonRequestTimeout)

	files := traceFiles(t, traceDir)
	if len(files) != 1 {
		t.Fatalf("expected one trace file, got %v", files)
	}
	if want := "request-timeout-20260315-100000.000.trace"; files[0] != want {
		t.Errorf("trace file = %s, want %s", files[0], want)
	}
}

func TestService_Capture_cooldown(t *testing.T) {
	service, clock, traceDir := newTestService(t, 0)
	ctx := t.Context()

	service.Capture(ctx, flightrecorder.ReasonRequestTimeout)
	clock.now = clock.now.Add(time.Minute)
	service.Capture(ctx, flightrecorder.ReasonRequestTimeout)
	if files := traceFiles(t, traceDir); len(files) != 1 {
		t.Fatalf("expected cooldown to prevent a second capture, got %v", files)
	}

	service.Capture(ctx, flightrecorder.ReasonGenerationTimeout)
	if files := traceFiles(t, traceDir); len(files) != 2 { //nolint:mnd // one per reason.
		t.Fatalf("expected each reason to have its own cooldown, got %v", files)
	}

	clock.now = clock.now.Add(time.Hour)
	service.Capture(ctx, flightrecorder.ReasonRequestTimeout)
	if files := traceFiles(t, traceDir); len(files) != 3 { //nolint:mnd // cooldown passed.
		t.Fatalf("expected capture after cooldown, got %v", files)
	}
}

func TestService_Capture_prunesOldTraces(t *testing.T) {
	service, clock, traceDir := newTestService(t, 2) //nolint:mnd // keep two.
	ctx := t.Context()

	for range 3 {
		service.Capture(ctx, flightrecorder.ReasonRequestTimeout)
		clock.now = clock.now.Add(time.Hour)
		// Modification times need to differ for the ordering.
		time.Sleep(10 * time.Millisecond) //nolint:mnd // coarse file system timestamps.
	}

	files := traceFiles(t, traceDir)
	if len(files) != 2 { //nolint:mnd // MaxTraces.
		t.Fatalf("expected two trace files, got %v", files)
	}
	for _, name := range files {
		if strings.Contains(name, "20260315-100000") {
			t.Errorf("expected oldest trace to be pruned, got %v", files)
		}
	}
}
