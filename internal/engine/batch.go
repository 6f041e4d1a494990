package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/sourcegraph/conc/iter"
)

// PredictBatch classifies every description with bounded parallelism and
// returns results in input order. The whole batch runs against one snapshot.
// A failing item degrades to an unknown result without affecting the others;
// items not started before ctx is canceled are reported the same way.
func (e *Engine) PredictBatch(ctx context.Context, descriptions []string) []model.PredictionResult {
	if len(descriptions) == 0 {
		return []model.PredictionResult{}
	}

	snap := e.load()
	mapper := iter.Mapper[string, model.PredictionResult]{
		MaxGoroutines: snap.settings.BatchWorkers,
	}

	results := mapper.Map(descriptions, func(description *string) model.PredictionResult {
		if err := ctx.Err(); err != nil {
			return snap.unknownResult(*description, fmt.Sprintf("not classified: %v", err))
		}
		return snap.predictSafe(*description)
	})

	slog.Debug("batch classified", "items", len(results), "workers", mapper.MaxGoroutines)
	return results
}

func (s *snapshot) predictSafe(description string) (result model.PredictionResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("prediction failed", "description", description, "panic", r)
			result = s.unknownResult(description, fmt.Sprintf("prediction failed: %v", r))
		}
	}()
	return s.predict(description)
}

// unknownResult is the degraded result used when an item cannot be scored.
func (s *snapshot) unknownResult(description, reason string) model.PredictionResult {
	return model.PredictionResult{
		Description:           description,
		PredictedCategoryID:   model.UnknownCategoryID,
		PredictedCategoryName: model.UnknownCategoryName,
		IsLowConfidence:       true,
		IsUnknown:             true,
		Explanation: model.Explanation{
			TopNeighbors:   []model.Neighbor{},
			KeywordMatches: map[string]string{},
			Rationale:      reason,
		},
	}
}
