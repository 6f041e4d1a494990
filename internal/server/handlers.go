package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/corpus"
	"github.com/Veraticus/kwisatz/internal/engine"
	"github.com/Veraticus/kwisatz/internal/evaluation"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/taxonomy"
	"github.com/gin-gonic/gin"
)

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Description *string `json:"description"`
}

// CorrectionRequest is the body of POST /corrections.
type CorrectionRequest struct {
	Metadata            map[string]string `json:"metadata"`
	Description         string            `json:"description"`
	PredictedCategoryID string            `json:"predicted_category_id"`
	CorrectedCategoryID string            `json:"corrected_category_id"`
}

func (s *Server) bannerHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "kwisatz",
		"version": s.version,
		"message": "transaction categorizer; POST /predict to classify a description",
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	stats := s.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"examples":   stats.Examples,
		"categories": stats.Categories,
	})
}

func (s *Server) predictHandler(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.Description == nil {
		BadRequest(c, "description is required")
		return
	}

	c.JSON(http.StatusOK, s.engine.Predict(*req.Description))
}

func (s *Server) predictBatchHandler(c *gin.Context) {
	file, name, ok := openUpload(c, ".csv")
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	descriptions, err := corpus.ReadDescriptions(file)
	if err != nil {
		BadRequest(c, fmt.Sprintf("failed to read %s: %v", name, err))
		return
	}

	results := s.engine.PredictBatch(c.Request.Context(), descriptions)
	slog.Debug("batch classified", "file", name, "items", len(results))
	c.JSON(http.StatusOK, results)
}

func (s *Server) taxonomyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Taxonomy())
}

func (s *Server) uploadTaxonomyHandler(c *gin.Context) {
	file, name, ok := openUpload(c, ".json", ".yaml", ".yml")
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		BadRequest(c, fmt.Sprintf("failed to read %s: %v", name, err))
		return
	}

	tax, err := taxonomy.Parse(data)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	// Validation and the file write happen inside the update so a watcher
	// reload cannot interleave with them.
	var saveErr error
	err = s.engine.Update(func(cur engine.Inputs) (engine.Inputs, error) {
		next := engine.Inputs{Taxonomy: tax, Corpus: cur.Corpus, Settings: cur.Settings}
		if err := cur.Corpus.Validate(tax); err != nil {
			return next, fmt.Errorf("taxonomy does not cover the corpus: %w", err)
		}
		if err := engine.Validate(next); err != nil {
			return next, err
		}
		if path := cur.Settings.TaxonomyPath; path != "" {
			if err := taxonomy.SaveFile(tax, path); err != nil {
				saveErr = err
				return next, err
			}
		}
		return next, nil
	})
	switch {
	case saveErr != nil:
		Internal(c, saveErr.Error())
		return
	case err != nil:
		BadRequest(c, err.Error())
		return
	}

	slog.Info("taxonomy replaced", "file", name, "categories", tax.Len())
	c.JSON(http.StatusOK, gin.H{
		"status":     "reloaded",
		"categories": tax.Len(),
	})
}

func (s *Server) correctionHandler(c *gin.Context) {
	var req CorrectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	recorded, err := s.engine.SubmitCorrection(c.Request.Context(), model.Correction{
		Description:         req.Description,
		PredictedCategoryID: req.PredictedCategoryID,
		CorrectedCategoryID: req.CorrectedCategoryID,
		Metadata:            req.Metadata,
	})
	switch {
	case errors.Is(err, common.ErrInvalidCorrection):
		BadRequest(c, err.Error())
		return
	case errors.Is(err, common.ErrSinkClosed):
		Unavailable(c, err.Error())
		return
	case err != nil:
		Internal(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recorded", "id": recorded.ID})
}

func (s *Server) configHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Settings())
}

func (s *Server) evaluationHandler(c *gin.Context) {
	file, name, ok := openUpload(c, ".csv")
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	rows, err := corpus.ReadCSV(file, name)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	report, err := evaluation.Evaluate(c.Request.Context(), s.engine, s.engine.Taxonomy(), rows)
	switch {
	case errors.Is(err, common.ErrUnknownCategory):
		BadRequest(c, err.Error())
		return
	case err != nil:
		Internal(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, report)
}

// openUpload opens the multipart "file" field, rejecting extensions outside
// allowed. It writes the error response itself and reports false on failure.
func openUpload(c *gin.Context, allowed ...string) (multipart.File, string, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "multipart field \"file\" is required")
		return nil, "", false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(allowed, ext) {
		BadRequest(c, fmt.Sprintf("unsupported file type %q, expected %s", ext, strings.Join(allowed, " or ")))
		return nil, "", false
	}

	file, err := header.Open()
	if err != nil {
		Internal(c, fmt.Sprintf("failed to open upload: %v", err))
		return nil, "", false
	}
	return file, header.Filename, true
}
