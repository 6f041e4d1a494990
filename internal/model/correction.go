package model

import "time"

// Correction is user feedback overriding a prior prediction.
type Correction struct {
	RecordedAt          time.Time         `json:"recorded_at"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	ID                  string            `json:"id"`
	Description         string            `json:"description"`
	PredictedCategoryID string            `json:"predicted_category_id"`
	CorrectedCategoryID string            `json:"corrected_category_id"`
}
