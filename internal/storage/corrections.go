package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
	"github.com/Veraticus/kwisatz/internal/normalize"
	"github.com/mattn/go-sqlite3"
)

// CorrectionFilter narrows ListCorrections. Zero values match everything.
type CorrectionFilter struct {
	Since      time.Time
	CategoryID string // matches the corrected category
	Limit      int
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const correctionColumns = `id, description, predicted_category_id, corrected_category_id, metadata, recorded_at`

// RecordCorrection appends a correction to the log.
func (s *SQLiteStorage) RecordCorrection(ctx context.Context, c model.Correction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(&c); err != nil {
		return err
	}

	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO corrections (id, description, normalized_description,
			predicted_category_id, corrected_category_id, metadata, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.Description,
		normalize.Text(c.Description),
		c.PredictedCategoryID,
		c.CorrectedCategoryID,
		string(encoded),
		c.RecordedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: correction %s", common.ErrDuplicateEntry, c.ID)
		}
		return fmt.Errorf("failed to record correction: %w", err)
	}
	return nil
}

// GetCorrection returns the correction with the given id.
func (s *SQLiteStorage) GetCorrection(ctx context.Context, id string) (*model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+correctionColumns+` FROM corrections WHERE id = ?`, id)
	c, err := scanCorrection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: correction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCorrections returns corrections in the order they were recorded.
func (s *SQLiteStorage) ListCorrections(ctx context.Context, filter CorrectionFilter) ([]model.Correction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if filter.CategoryID != "" {
		where = append(where, "corrected_category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if !filter.Since.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	query := `SELECT ` + correctionColumns + ` FROM corrections`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	corrections := []model.Correction{}
	for rows.Next() {
		c, err := scanCorrection(rows)
		if err != nil {
			return nil, err
		}
		corrections = append(corrections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate corrections: %w", err)
	}
	return corrections, nil
}

// CountCorrections returns the number of corrections per corrected category.
func (s *SQLiteStorage) CountCorrections(ctx context.Context) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT corrected_category_id, COUNT(*)
		FROM corrections
		GROUP BY corrected_category_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to count corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan correction count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCorrection(row scanner) (model.Correction, error) {
	var (
		c          model.Correction
		metadata   string
		recordedAt string
	)
	if err := row.Scan(&c.ID, &c.Description, &c.PredictedCategoryID, &c.CorrectedCategoryID, &metadata, &recordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("failed to scan correction: %w", err)
	}

	ts, err := time.Parse(timeLayout, recordedAt)
	if err != nil {
		return c, fmt.Errorf("%w: bad timestamp %q on correction %s", common.ErrDatabaseCorrupted, recordedAt, c.ID)
	}
	c.RecordedAt = ts

	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &c.Metadata); err != nil {
			return c, fmt.Errorf("%w: bad metadata on correction %s", common.ErrDatabaseCorrupted, c.ID)
		}
	}
	return c, nil
}
