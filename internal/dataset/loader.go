package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"outbreak-mcp/internal/epi"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// LoadOptions control how a grid is interpreted.
type LoadOptions struct {
	Layout epi.Layout
	// OutcomeColumn is the header of the case/control (or ill/well) column. Default "outcome".
	OutcomeColumn string
	// IDColumn, when present, is ignored rather than treated as a factor. Default "id".
	IDColumn string
	// Sheet selects the worksheet of an .xlsx file. Default is the first sheet.
	Sheet string
	Yates bool
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.Layout == "" {
		o.Layout = epi.CaseControl
	}
	if o.OutcomeColumn == "" {
		o.OutcomeColumn = "outcome"
	}
	if o.IDColumn == "" {
		o.IDColumn = "id"
	}
	return o
}

// LoadFile imports a .json request document, a .csv line list or an .xlsx line list.
func LoadFile(path string, opts LoadOptions) (*Dataset, error) {
	opts = opts.withDefaults()

	var (
		ds  *Dataset
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		ds, err = loadJSON(path, opts)
	case ".csv":
		ds, err = loadCSV(path, opts)
	case ".xlsx", ".xlsm":
		ds, err = loadXLSX(path, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	ds.Source = path
	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	log.Info().
		Str("path", path).
		Int("subjects", len(ds.Subjects)).
		Int("factors", len(ds.Factors)).
		Str("layout", string(ds.Layout)).
		Msg("Dataset imported")
	return ds, nil
}

func loadJSON(path string, opts LoadOptions) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	req, err := epi.DecodeRequest(data)
	if err != nil {
		return nil, err
	}
	return &Dataset{
		Layout:          req.Layout,
		YatesCorrection: req.YatesCorrectionEnabled || opts.Yates,
		Factors:         req.Factors,
		Subjects:        req.Subjects,
	}, nil
}

func loadCSV(path string, opts LoadOptions) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()
	return ParseCSV(file, opts)
}

// ParseCSV reads a line list whose first row is the header.
func ParseCSV(r io.Reader, opts LoadOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return FromGrid(rows, opts)
}

func loadXLSX(path string, opts LoadOptions) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyGrid
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return FromGrid(rows, opts)
}

// FromGrid interprets a header row plus one row per subject. Every column other than the
// outcome and ID columns becomes a factor named after its header.
func FromGrid(rows [][]string, opts LoadOptions) (*Dataset, error) {
	opts = opts.withDefaults()
	if len(rows) == 0 {
		return nil, ErrEmptyGrid
	}

	header := rows[0]
	outcomeIdx := -1
	type column struct {
		idx    int
		factor epi.Factor
	}
	var columns []column
	seen := make(map[string]int)

	for i, h := range header {
		name := strings.TrimSpace(h)
		switch {
		case name == "":
			continue
		case strings.EqualFold(name, opts.OutcomeColumn):
			outcomeIdx = i
			continue
		case strings.EqualFold(name, opts.IDColumn):
			continue
		}

		id := Slugify(name)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = id + "_" + strconv.Itoa(n)
		}
		columns = append(columns, column{idx: i, factor: epi.Factor{ID: id, DisplayName: name}})
	}

	if outcomeIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoOutcomeColumn, opts.OutcomeColumn)
	}

	ds := &Dataset{
		Layout:          opts.Layout,
		YatesCorrection: opts.Yates,
		Factors:         make([]epi.Factor, len(columns)),
	}
	for i, c := range columns {
		ds.Factors[i] = c.factor
	}

	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		s := epi.Subject{
			Outcome:   NormalizeAnswer(cell(row, outcomeIdx)),
			Exposures: make([]epi.Answer, len(columns)),
		}
		for i, c := range columns {
			s.Exposures[i] = NormalizeAnswer(cell(row, c.idx))
		}
		ds.Subjects = append(ds.Subjects, s)
	}

	return ds, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// NormalizeAnswer maps the spellings commonly found in line lists onto Yes/No/Missing.
func NormalizeAnswer(s string) epi.Answer {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "y", "yes", "true", "case", "ill", "sick", "exposed":
		return epi.Yes
	case "0", "n", "no", "false", "control", "well", "healthy", "unexposed":
		return epi.No
	}
	return epi.Missing
}

// Slugify turns a column header into a stable factor ID.
func Slugify(s string) string {
	var sb strings.Builder
	underscore := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && sb.Len() > 0 {
			sb.WriteByte('_')
			underscore = true
		}
	}
	return strings.TrimSuffix(sb.String(), "_")
}
