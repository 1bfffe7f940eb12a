package questionnaire

import (
	"strconv"
	"strings"

	"github.com/myrjola/velocoach/internal/profile"
)

// Status is the outcome of checking a numeric input against its [RangePolicy].
type Status int

const (
	StatusValid Status = iota
	// StatusWarning flags an implausible but accepted value.
	StatusWarning
	// StatusInvalid blocks advancing.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusWarning:
		return "warning"
	case StatusInvalid:
		return "invalid"
	}
	return "unknown"
}

// RangePolicy is an inclusive hard range with soft warning bands at both ends.
// Values at or below WarnBelow and at or above WarnFrom produce a warning.
type RangePolicy struct {
	Min       int
	Max       int
	WarnBelow int
	WarnFrom  int
}

// Check classifies v.
func (p RangePolicy) Check(v int) Status {
	if v < p.Min || v > p.Max {
		return StatusInvalid
	}
	if v <= p.WarnBelow || v >= p.WarnFrom {
		return StatusWarning
	}
	return StatusValid
}

// CheckRaw parses raw form input and classifies it. Empty or non-numeric input is invalid.
func (p RangePolicy) CheckRaw(raw string) (int, Status) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, StatusInvalid
	}
	return v, p.Check(v)
}

//nolint:gochecknoglobals // fixed plausibility bands.
var (
	FTPPolicy = RangePolicy{
		Min:       profile.MinFTP,
		Max:       profile.MaxFTP,
		WarnBelow: 80,  //nolint:mnd // watts.
		WarnFrom:  450, //nolint:mnd // watts.
	}
	HeartRatePolicy = RangePolicy{
		Min:       profile.MinMaxHeartRate,
		Max:       profile.MaxMaxHeartRate,
		WarnBelow: 150, //nolint:mnd // bpm.
		WarnFrom:  205, //nolint:mnd // bpm.
	}
)
