package classifier

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrArtifactNotFound means the configured path is missing or matches
	// neither supported artifact shape.
	ErrArtifactNotFound = errors.New("classifier: artifact not found")

	// ErrArtifactIncompatible marks the known incompatibility class between
	// the artifact and the active runtime. It triggers the fallback strategy
	// and is never shown to the user on its own.
	ErrArtifactIncompatible = errors.New("classifier: artifact incompatible with runtime")

	// ErrImageDecode means the scan input could not be decoded as an image.
	ErrImageDecode = errors.New("classifier: image decode failed")

	// ErrModelLoading means the background load has not finished yet.
	ErrModelLoading = errors.New("classifier: model still loading")
)

// StrategyFailure records one failed load attempt.
type StrategyFailure struct {
	Strategy string
	Err      error
}

// FatalLoadError means every applicable strategy was exhausted. Scanning
// stays blocked until the artifact or the runtime is fixed by hand.
type FatalLoadError struct {
	Path     string
	Failures []StrategyFailure
}

// Error implements the error interface.
func (e *FatalLoadError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Strategy, f.Err))
	}
	return fmt.Sprintf("classifier: cannot load artifact %q: %s", e.Path, strings.Join(parts, "; "))
}

// Unwrap exposes the last failure for errors.Is/As support.
func (e *FatalLoadError) Unwrap() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Err
}

// incompatibility markers seen from runtime version drift. The list is
// deliberately conservative: anything not matched is treated as fatal.
var incompatibilityMarkers = []string{
	"ir version",
	"opset",
	"not supported",
	"unsupported",
	"incompatible",
}

func isIncompatibility(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrArtifactIncompatible) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range incompatibilityMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
