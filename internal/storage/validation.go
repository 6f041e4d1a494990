// Package storage persists user corrections in an append-only SQLite log.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCorrection checks the fields the log requires. Category ids are
// validated against the taxonomy by the engine before they get here.
func validateCorrection(c *model.Correction) error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return fmt.Errorf("%w: missing id", common.ErrInvalidCorrection)
	case strings.TrimSpace(c.Description) == "":
		return fmt.Errorf("%w: missing description", common.ErrInvalidCorrection)
	case strings.TrimSpace(c.CorrectedCategoryID) == "":
		return fmt.Errorf("%w: missing corrected category", common.ErrInvalidCorrection)
	case strings.TrimSpace(c.PredictedCategoryID) == "":
		return fmt.Errorf("%w: missing predicted category", common.ErrInvalidCorrection)
	case c.RecordedAt.IsZero():
		return fmt.Errorf("%w: missing timestamp", common.ErrInvalidCorrection)
	}
	return nil
}
