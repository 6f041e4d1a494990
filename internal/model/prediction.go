package model

// Neighbor is a corpus example scored against one query.
type Neighbor struct {
	Description string  `json:"description"`
	CategoryID  string  `json:"category_id"`
	Similarity  float64 `json:"similarity"`
}

// Explanation describes the evidence behind a prediction.
type Explanation struct {
	KeywordMatches map[string]string `json:"keyword_matches"`
	Rationale      string            `json:"rationale"`
	TopNeighbors   []Neighbor        `json:"top_neighbors"`
}

// PredictionResult is the outcome of classifying one description.
type PredictionResult struct {
	Explanation           Explanation `json:"explanation"`
	Description           string      `json:"description"`
	PredictedCategoryID   string      `json:"predicted_category_id"`
	PredictedCategoryName string      `json:"predicted_category_name"`
	Confidence            float64     `json:"confidence"`
	IsLowConfidence       bool        `json:"is_low_confidence"`
	IsUnknown             bool        `json:"is_unknown"`
}

// NeedsReview reports whether a human should look at the prediction.
func (r PredictionResult) NeedsReview() bool {
	return r.IsLowConfidence || r.IsUnknown
}
