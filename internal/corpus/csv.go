package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Veraticus/kwisatz/internal/common"
	"github.com/Veraticus/kwisatz/internal/model"
)

// Column names of the labeled CSV format.
const (
	ColumnDescription = "description"
	ColumnAmount      = "amount"
	ColumnMerchant    = "merchant"
	ColumnCategoryID  = "category_id"
)

// Row is one labeled line of a corpus file.
type Row struct {
	Amount      *float64
	Description string
	Merchant    string
	CategoryID  string
	Source      string // file name or other origin, for error messages
	Line        int
}

type header map[string]int

func readHeader(r *csv.Reader, required ...string) (header, error) {
	record, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, common.ErrEmptyCorpusFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	h := make(header, len(record))
	for i, name := range record {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}

	for _, col := range required {
		if _, ok := h[col]; !ok {
			return nil, fmt.Errorf("%w: %q", common.ErrMissingColumn, col)
		}
	}
	return h, nil
}

func (h header) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ReadCSV reads labeled rows with the columns description, amount, merchant
// and category_id. Only description and category_id are required.
func ReadCSV(r io.Reader, source string) ([]Row, error) {
	cr := newReader(r)
	h, err := readHeader(cr, ColumnDescription, ColumnCategoryID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}

		line, _ := cr.FieldPos(0)
		row := Row{
			Description: h.get(record, ColumnDescription),
			Merchant:    h.get(record, ColumnMerchant),
			CategoryID:  h.get(record, ColumnCategoryID),
			Source:      source,
			Line:        line,
		}
		if raw := h.get(record, ColumnAmount); raw != "" {
			if amount, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
				row.Amount = &amount
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ReadDescriptions reads the description column of a CSV file, preserving
// row order. Other columns are ignored.
func ReadDescriptions(r io.Reader) ([]string, error) {
	cr := newReader(r)
	h, err := readHeader(cr, ColumnDescription)
	if err != nil {
		return nil, err
	}

	var descriptions []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		descriptions = append(descriptions, h.get(record, ColumnDescription))
	}
	return descriptions, nil
}

// LoadFiles reads several corpus files and concatenates their rows in order.
func LoadFiles(paths ...string) ([]Row, error) {
	var rows []Row
	for _, path := range paths {
		fileRows, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		rows = append(rows, fileRows...)
	}
	return rows, nil
}

func loadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f, path)
}

// WriteCSV writes rows in the labeled CSV format.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{ColumnDescription, ColumnAmount, ColumnMerchant, ColumnCategoryID}); err != nil {
		return err
	}
	for _, row := range rows {
		amount := ""
		if row.Amount != nil {
			amount = strconv.FormatFloat(*row.Amount, 'f', 2, 64)
		}
		if err := cw.Write([]string{row.Description, amount, row.Merchant, row.CategoryID}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FromCorrections turns logged corrections into labeled rows. When the same
// description was corrected more than once, the latest correction wins and
// keeps the position of the first.
func FromCorrections(corrections []model.Correction) []Row {
	rows := make([]Row, 0, len(corrections))
	seen := make(map[string]int, len(corrections))
	for _, c := range corrections {
		desc := strings.TrimSpace(c.Description)
		if desc == "" {
			continue
		}
		if i, ok := seen[desc]; ok {
			rows[i].CategoryID = c.CorrectedCategoryID
			continue
		}
		seen[desc] = len(rows)
		rows = append(rows, Row{
			Description: desc,
			CategoryID:  c.CorrectedCategoryID,
			Source:      "corrections",
			Line:        len(rows) + 1,
		})
	}
	return rows
}
