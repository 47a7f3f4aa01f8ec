package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDecode        = errors.New("decode error")
	ErrQuality       = errors.New("quality error")
	ErrStructural    = errors.New("structural input error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrExternal      = errors.New("external service error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRecordLevel reports whether err describes a failure scoped to a single
// record. Record-level failures are logged and skipped; everything else aborts
// the run.
func IsRecordLevel(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrQuality)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
