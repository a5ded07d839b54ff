package valuation

import (
	"errors"
	"strings"

	"github.com/seenimoa/smevalue/pkg/models"
)

// ErrInsufficientData is matched by every *InsufficientDataError via errors.Is.
var ErrInsufficientData = errors.New("insufficient data for valuation")

// InsufficientDataError reports that no method could produce an estimate.
// Callers should surface it as a client error.
type InsufficientDataError struct {
	Skipped []models.SkippedMethod
}

func (e *InsufficientDataError) Error() string {
	if len(e.Skipped) == 0 {
		return ErrInsufficientData.Error()
	}
	reasons := make([]string, 0, len(e.Skipped))
	for _, s := range e.Skipped {
		reasons = append(reasons, s.Method+": "+s.Reason)
	}
	return ErrInsufficientData.Error() + " (" + strings.Join(reasons, "; ") + ")"
}

// Is lets errors.Is(err, ErrInsufficientData) match.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
