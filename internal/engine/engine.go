// Package engine implements the classification pipeline: nearest-neighbor
// voting, keyword corroboration, abstention and explanation.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/config"
	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/index"
	"github.com/Veraticus/kwisatz/internal/keyword"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/google/uuid"
)

// snapshot is everything one prediction reads. It is never mutated after
// construction; Reload replaces it wholesale.
type snapshot struct {
	taxonomy *model.Taxonomy
	corpus   *corpus.Corpus
	index    *index.Index
	matcher  *keyword.Matcher
	policy   Policy
	settings config.Settings
}

// Stats summarizes the active snapshot.
type Stats struct {
	Examples   int `json:"examples"`
	Categories int `json:"categories"`
	Vocabulary int `json:"vocabulary"`
	Keywords   int `json:"keywords"`
}

// Inputs are the pieces a snapshot is built from.
type Inputs struct {
	Taxonomy *model.Taxonomy
	Corpus   *corpus.Corpus
	Settings config.Settings
}

// Engine classifies transaction descriptions against the active snapshot.
// Predict and PredictBatch are safe for concurrent use with Reload.
type Engine struct {
	current atomic.Pointer[snapshot]
	// reloadMu orders replacements; predictions never take it.
	reloadMu sync.Mutex
	sink    CorrectionSink
	now     func() time.Time
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithCorrectionSink sets where SubmitCorrection forwards corrections.
func WithCorrectionSink(sink CorrectionSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithClock overrides the clock used to stamp corrections.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine from a taxonomy, a corpus and validated settings.
// A nil corpus is treated as empty.
func New(tax *model.Taxonomy, c *corpus.Corpus, settings config.Settings, opts ...Option) (*Engine, error) {
	snap, err := buildSnapshot(tax, c, settings)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.current.Store(snap)

	slog.Debug("engine ready",
		"examples", snap.corpus.Len(),
		"categories", snap.taxonomy.Len(),
		"k", settings.K)
	return e, nil
}

// Reload validates the new inputs and swaps them in atomically. On error the
// previous snapshot stays active.
func (e *Engine) Reload(tax *model.Taxonomy, c *corpus.Corpus, settings config.Settings) error {
	return e.Update(func(Inputs) (Inputs, error) {
		return Inputs{Taxonomy: tax, Corpus: c, Settings: settings}, nil
	})
}

// Update replaces the snapshot with the inputs fn derives from the active
// ones. Updates run one at a time, so fn observes every earlier update and
// may safely persist its result before returning. If fn or validation fails
// the previous snapshot stays active.
func (e *Engine) Update(fn func(current Inputs) (Inputs, error)) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	cur := e.load()
	next, err := fn(Inputs{Taxonomy: cur.taxonomy, Corpus: cur.corpus, Settings: cur.settings})
	if err != nil {
		return err
	}
	snap, err := buildSnapshot(next.Taxonomy, next.Corpus, next.Settings)
	if err != nil {
		return fmt.Errorf("reload rejected: %w", err)
	}
	e.current.Store(snap)

	slog.Info("engine reloaded",
		"examples", snap.corpus.Len(),
		"categories", snap.taxonomy.Len())
	return nil
}

// Validate reports whether Update would accept in.
func Validate(in Inputs) error {
	_, err := buildSnapshot(in.Taxonomy, in.Corpus, in.Settings)
	return err
}

func buildSnapshot(tax *model.Taxonomy, c *corpus.Corpus, settings config.Settings) (*snapshot, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if tax == nil || tax.Len() == 0 {
		return nil, fmt.Errorf("%w: taxonomy has no categories", common.ErrInvalidTaxonomy)
	}
	if c == nil {
		c = corpus.Empty()
	}
	if err := c.Validate(tax); err != nil {
		return nil, err
	}

	return &snapshot{
		taxonomy: tax,
		corpus:   c,
		index:    index.New(c),
		matcher:  keyword.NewMatcher(tax),
		policy:   NewPolicy(settings),
		settings: settings,
	}, nil
}

func (e *Engine) load() *snapshot {
	return e.current.Load()
}

// Taxonomy returns the active taxonomy.
func (e *Engine) Taxonomy() *model.Taxonomy {
	return e.load().taxonomy
}

// Corpus returns the active example corpus.
func (e *Engine) Corpus() *corpus.Corpus {
	return e.load().corpus
}

// Settings returns the active settings.
func (e *Engine) Settings() config.Settings {
	return e.load().settings
}

// Stats describes the active snapshot.
func (e *Engine) Stats() Stats {
	snap := e.load()
	return Stats{
		Examples:   snap.corpus.Len(),
		Categories: snap.taxonomy.Len(),
		Vocabulary: snap.index.Vocabulary(),
		Keywords:   snap.matcher.Len(),
	}
}

// Predict classifies one description. It never fails: unrecognizable input
// is reported through the abstention flags.
func (e *Engine) Predict(description string) model.PredictionResult {
	return e.load().predict(description)
}

func (s *snapshot) predict(description string) model.PredictionResult {
	normalized := normalizeQuery(description)

	hits := s.index.Search(normalized, s.settings.K)
	neighbors := make([]model.Neighbor, len(hits))
	for i, hit := range hits {
		ex := s.corpus.At(hit.Position)
		neighbors[i] = model.Neighbor{
			Description: ex.RawText,
			CategoryID:  ex.CategoryID,
			Similarity:  hit.Similarity,
		}
	}

	matches := s.matcher.Match(normalized)
	d := aggregate(neighbors, matches, s.settings.KeywordBoost)
	v := s.policy.Apply(d)

	result := model.PredictionResult{
		Description:         description,
		PredictedCategoryID: v.CategoryID,
		Confidence:          d.Confidence,
		IsLowConfidence:     v.LowConfidence,
		IsUnknown:           v.Unknown,
	}
	result.PredictedCategoryName = s.taxonomy.NameOf(result.PredictedCategoryID)
	result.Explanation = explain(neighbors, matches, d, v)
	return result
}
