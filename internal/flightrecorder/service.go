// Package flightrecorder keeps a rolling execution trace in memory and writes it to disk when a request or a
// plan generation runs out of time.
package flightrecorder

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/trace"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/myrjola/velocoach/internal/errors"
)

const (
	defaultMinAge    = 5 * time.Minute
	defaultMaxBytes  = 64 * 1024 * 1024 // 64MB
	defaultMaxTraces = 20
	cooldownDuration = 30 * time.Minute
	traceExtension   = ".trace"
)

// Reason names why a trace was captured. It prefixes the trace file name.
type Reason string

const (
	// ReasonRequestTimeout is a request that hit the handler deadline.
	ReasonRequestTimeout Reason = "request-timeout"
	// ReasonGenerationTimeout is a plan generation that hit the generation deadline.
	ReasonGenerationTimeout Reason = "generation-timeout"
)

// Service manages flight recording for timeout detection.
type Service struct {
	logger          *slog.Logger
	flightRecorder  *trace.FlightRecorder
	tracesDirectory string
	maxTraces       int
	now             func() time.Time

	mu          sync.Mutex
	lastCapture map[Reason]time.Time
}

// Config configures the flight recorder service. Zero values select the defaults.
type Config struct {
	Logger          *slog.Logger
	MinAge          time.Duration    // Minimum age of trace events
	MaxBytes        uint64           // Maximum size of trace buffer
	MaxTraces       int              // Trace files kept in TracesDirectory
	TracesDirectory string           // Directory where trace files are written
	Now             func() time.Time // Clock for the capture cooldown
}

var (
	errMissingLogger    = errors.NewSentinel("logger is required")
	errMissingDirectory = errors.NewSentinel("traces directory is required")
)

// New creates a new flight recorder service.
func New(cfg Config) (*Service, error) {
	if cfg.Logger == nil {
		return nil, errMissingLogger
	}
	if cfg.TracesDirectory == "" {
		return nil, errMissingDirectory
	}

	stat, err := os.Stat(cfg.TracesDirectory)
	switch {
	case err != nil:
		if err = os.MkdirAll(cfg.TracesDirectory, 0o700); err != nil { //nolint:mnd // owner only.
			return nil, errors.Wrap(err, "create traces directory")
		}
	case !stat.IsDir():
		return nil, errors.New("traces path is not a directory", slog.String("path", cfg.TracesDirectory))
	}

	minAge := cmp.Or(cfg.MinAge, defaultMinAge)
	maxBytes := cmp.Or(cfg.MaxBytes, defaultMaxBytes)
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		logger:          cfg.Logger,
		flightRecorder:  trace.NewFlightRecorder(trace.FlightRecorderConfig{MinAge: minAge, MaxBytes: maxBytes}),
		tracesDirectory: cfg.TracesDirectory,
		maxTraces:       cmp.Or(cfg.MaxTraces, defaultMaxTraces),
		now:             now,
		mu:              sync.Mutex{},
		lastCapture:     make(map[Reason]time.Time),
	}, nil
}

// Start begins flight recording.
func (s *Service) Start(ctx context.Context) error {
	if err := s.flightRecorder.Start(); err != nil {
		return errors.Wrap(err, "start flight recorder")
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder started",
		slog.String("traces_directory", s.tracesDirectory),
		slog.Int("max_traces", s.maxTraces),
		slog.Duration("cooldown", cooldownDuration))
	return nil
}

// Stop ends flight recording.
func (s *Service) Stop(ctx context.Context) {
	s.flightRecorder.Stop()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "flight recorder stopped")
}

// Capture writes the recorded trace to a file named after reason. Each reason is captured at most once per
// cooldown period, and only the newest trace files are kept.
func (s *Service) Capture(ctx context.Context, reason Reason) {
	now := s.now()
	if !s.reserve(reason, now) {
		s.logger.LogAttrs(ctx, slog.LevelDebug, "skipping trace capture due to cooldown",
			slog.String("reason", string(reason)))
		return
	}

	path := filepath.Join(s.tracesDirectory,
		fmt.Sprintf("%s-%s%s", reason, now.UTC().Format("20060102-150405.000"), traceExtension))
	written, err := s.write(path)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to capture trace",
			slog.String("reason", string(reason)), errors.SlogError(err))
		return
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "captured trace",
		slog.String("reason", string(reason)),
		slog.String("file", path),
		slog.Int64("bytes", written))

	if err = s.prune(); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "failed to prune traces", errors.SlogError(err))
	}
}

// reserve claims the capture slot of reason unless it was used within the cooldown.
func (s *Service) reserve(reason Reason, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastCapture[reason]; ok && now.Sub(last) < cooldownDuration {
		return false
	}
	s.lastCapture[reason] = now
	return true
}

func (s *Service) write(path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, errors.Wrap(err, "create trace file", slog.String("file", path))
	}
	written, err := s.flightRecorder.WriteTo(file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return 0, errors.Wrap(err, "write trace file", slog.String("file", path))
	}
	return written, nil
}

// prune removes the oldest trace files beyond maxTraces. File names sort by capture time within a reason, so
// the modification time decides across reasons.
func (s *Service) prune() error {
	entries, err := os.ReadDir(s.tracesDirectory)
	if err != nil {
		return errors.Wrap(err, "read traces directory")
	}
	type traceFile struct {
		name    string
		modTime time.Time
	}
	var traces []traceFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), traceExtension) {
			continue
		}
		info, infoErr := entry.Info()
		if infoErr != nil {
			continue
		}
		traces = append(traces, traceFile{name: entry.Name(), modTime: info.ModTime()})
	}
	if len(traces) <= s.maxTraces {
		return nil
	}
	slices.SortFunc(traces, func(a, b traceFile) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	var errs []error
	for _, old := range traces[:len(traces)-s.maxTraces] {
		if removeErr := os.Remove(filepath.Join(s.tracesDirectory, old.name)); removeErr != nil {
			errs = append(errs, removeErr)
		}
	}
	return errors.Join(errs...)
}
