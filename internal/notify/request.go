package notify

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode is the suppression policy attached to a registration.
type Mode string

const (
	ModeAlways        Mode = "always"
	ModeNever         Mode = "never"
	ModeOnError       Mode = "on-error"
	ModeGlobalTimeout Mode = "global-timeout" // notify only when the global deadline is hit
	ModeCustomTimeout Mode = "custom-timeout" // notify only when the request's own deadline is hit
)

// ErrUnknownMode is returned by ParseMode for values outside the known set.
var ErrUnknownMode = errors.New("unknown notification mode")

// ParseMode converts a wire value to a Mode. An empty value means ModeAlways.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(strings.ToLower(s))); m {
	case "":
		return ModeAlways, nil
	case ModeAlways, ModeNever, ModeOnError, ModeGlobalTimeout, ModeCustomTimeout:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// IsTimeoutMode reports whether the mode only cares about deadlines.
func (m Mode) IsTimeoutMode() bool {
	return m == ModeGlobalTimeout || m == ModeCustomTimeout
}

// Status is the terminal state reported in a notification.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
	StatusTimeout Status = "Timeout"
)

// Outcome is the terminal result of a cell execution.
type Outcome struct {
	Success     bool
	ErrorDetail string
	TimedOut    bool
}

// TimeoutOutcome is the synthetic outcome produced when a deadline fires.
func TimeoutOutcome() Outcome {
	return Outcome{TimedOut: true}
}

// Status maps the outcome to the status shown to the user.
func (o Outcome) Status() Status {
	switch {
	case o.TimedOut:
		return StatusTimeout
	case o.Success:
		return StatusSuccess
	default:
		return StatusFailed
	}
}

// Request describes what a caller wants notified and how.
// It is treated as a value: the engine copies it and never mutates it.
type Request struct {
	CellID         string
	Mode           Mode
	Chat           bool
	Mail           bool
	SuccessMessage string
	FailureMessage string
	Threshold      time.Duration
}

// Validate checks a request about to be registered and returns a
// *ValidationError on failure. Timeout modes need a deadline to arm.
func (r Request) Validate() error {
	if err := r.ValidateTrigger(); err != nil {
		return err
	}
	switch {
	case r.Mode == ModeCustomTimeout && r.Threshold == 0:
		return &ValidationError{Field: "threshold", Message: "custom-timeout requires a positive threshold"}
	case r.Mode == ModeGlobalTimeout && r.Threshold == 0:
		return &ValidationError{Field: "threshold", Message: "global-timeout requires a threshold when no global timeout is configured"}
	}
	return nil
}

// ValidateTrigger checks a request dispatched without registration. No
// timer is armed, so a timeout mode does not need a threshold.
func (r Request) ValidateTrigger() error {
	if strings.TrimSpace(r.CellID) == "" {
		return &ValidationError{Field: "cell_id", Message: "cell_id is required"}
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return &ValidationError{Field: "mode", Message: err.Error()}
	}
	if r.Threshold < 0 {
		return &ValidationError{Field: "threshold", Message: "threshold must not be negative"}
	}
	return nil
}

// ThresholdFromSeconds converts a wire threshold in (possibly fractional)
// seconds to a duration. Nil means no deadline. Values beyond the range of
// time.Duration saturate.
func ThresholdFromSeconds(secs *float64) time.Duration {
	if secs == nil {
		return 0
	}
	ns := *secs * float64(time.Second)
	switch {
	case math.IsNaN(ns):
		return 0
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	case ns <= math.MinInt64:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(ns)
}
