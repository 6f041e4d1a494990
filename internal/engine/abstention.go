package engine

import (
	"github.com/Veraticus/kwisatz/internal/config"
	"github.com/Veraticus/kwisatz/internal/model"
)

// Policy decides between a confident label, a flagged best guess and the
// unknown sentinel. Thresholds are validated by config.Settings.
type Policy struct {
	ConfidenceThreshold float64
	UnknownThreshold    float64
}

// NewPolicy reads the thresholds from settings.
func NewPolicy(s config.Settings) Policy {
	return Policy{
		ConfidenceThreshold: s.ConfidenceThreshold,
		UnknownThreshold:    s.UnknownThreshold,
	}
}

// Verdict is the policy outcome for one query.
type Verdict struct {
	CategoryID    string
	LowConfidence bool
	Unknown       bool
}

// Apply maps an aggregation decision to a verdict.
func (p Policy) Apply(d decision) Verdict {
	v := Verdict{
		CategoryID:    model.UnknownCategoryID,
		LowConfidence: d.Confidence < p.ConfidenceThreshold,
	}

	if !d.HasEvidence() || d.Confidence < p.UnknownThreshold {
		v.Unknown = true
		return v
	}

	v.CategoryID = d.Winner.CategoryID
	return v
}
