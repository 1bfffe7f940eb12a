package testhelpers

import (
	"io"
	"log/slog"

	"github.com/myrjola/velocoach/internal/logging"
)

// NewLogger returns a debug logger writing to logSink, usually a [Writer] from [NewWriter].
func NewLogger(logSink io.Writer) *slog.Logger {
	return logging.New(logSink, nil)
}
