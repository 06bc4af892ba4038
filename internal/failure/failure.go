// Package failure defines the error taxonomy shared by every seiir stage.
//
// Errors are tagged with one of the exported sentinels so the CLI and the run
// ledger can classify a failure without parsing messages. None of these
// conditions are retried.
package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks mode errors such as writing to a read-only root.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a key that resolved to no file or directory.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous marks a key that matched more than one file or directory.
	ErrAmbiguous = errors.New("ambiguous match")
	// ErrConsistency marks two sources that are expected to agree but do not.
	ErrConsistency = errors.New("consistency error")
	// ErrComputation marks a per-draw computation that could not complete.
	ErrComputation = errors.New("computation error")
	// ErrValidation marks malformed input data or parameters.
	ErrValidation = errors.New("validation error")
)

var markers = []error{
	ErrConfiguration,
	ErrNotFound,
	ErrAmbiguous,
	ErrConsistency,
	ErrComputation,
	ErrValidation,
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrComputation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short name of the first sentinel matched by err, or
// "unknown" when none match.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, marker := range markers {
		if errors.Is(err, marker) {
			return marker.Error()
		}
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
