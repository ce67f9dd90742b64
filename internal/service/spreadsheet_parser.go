package service

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/lshigami/quizhub/config"
	"github.com/lshigami/quizhub/internal/apperror"
	"github.com/lshigami/quizhub/internal/dto"
	"github.com/xuri/excelize/v2"
)

// Structural error codes: the file as a whole cannot be processed.
const (
	CodeMissingHeader  = "MISSING_HEADER"
	CodeUnreadableFile = "UNREADABLE_FILE"
	CodeEmptyFile      = "EMPTY_FILE"
	CodeTooManyRows    = "TOO_MANY_ROWS"
	CodeFileTooLarge   = "FILE_TOO_LARGE"
)

type column int

const (
	colQuestion column = iota
	colOptionA
	colOptionB
	colOptionC
	colOptionD
	colCorrect
	colCategory
	colDifficulty
	columnCount
)

var columnNames = [columnCount]string{
	"question", "option_a", "option_b", "option_c", "option_d", "correct_answer", "category", "difficulty",
}

var headerAliases = map[string]column{
	"question":       colQuestion,
	"question_text":  colQuestion,
	"option_a":       colOptionA,
	"a":              colOptionA,
	"option_b":       colOptionB,
	"b":              colOptionB,
	"option_c":       colOptionC,
	"c":              colOptionC,
	"option_d":       colOptionD,
	"d":              colOptionD,
	"correct_answer": colCorrect,
	"answer":         colCorrect,
	"correct":        colCorrect,
	"category":       colCategory,
	"difficulty":     colDifficulty,
}

var zipSignature = []byte("PK\x03\x04")

// SheetRow is one non-blank data row with its 1-based row number in the file.
type SheetRow struct {
	Number   int
	Question dto.UploadQuestion
}

// SpreadsheetParser reads an uploaded .xlsx or .csv question sheet.
type SpreadsheetParser struct {
	maxBytes int64
	maxRows  int
}

func NewSpreadsheetParser(cfg *config.Config) *SpreadsheetParser {
	return &SpreadsheetParser{maxBytes: cfg.Upload.MaxBytes, maxRows: cfg.Upload.MaxRows}
}

// Parse returns the data rows of the first sheet. Any error is structural.
func (p *SpreadsheetParser) Parse(filename string, r io.Reader) ([]SheetRow, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, apperror.Structural(CodeUnreadableFile, "could not read the uploaded file", err.Error())
	}
	if int64(len(data)) > p.maxBytes {
		return nil, apperror.Structural(CodeFileTooLarge, fmt.Sprintf("file is larger than %d bytes", p.maxBytes))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, apperror.Structural(CodeEmptyFile, "file is empty")
	}

	var records []sheetRecord
	if isWorkbook(filename, data) {
		records, err = readWorkbook(data)
	} else {
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, apperror.Structural(CodeUnreadableFile, "could not parse the uploaded file", err.Error())
	}
	return p.rows(records)
}

func isWorkbook(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	case ".csv":
		return false
	}
	return bytes.HasPrefix(data, zipSignature)
}

// sheetRecord is one parsed line with the 1-based line it starts on, which is
// the row number reported back to the admin.
type sheetRecord struct {
	line  int
	cells []string
}

func readWorkbook(data []byte) ([]sheetRecord, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	records := make([]sheetRecord, len(rows))
	for i, cells := range rows {
		records[i] = sheetRecord{line: i + 1, cells: cells}
	}
	return records, nil
}

// readCSV keeps the physical line of every record; quoted cells may span
// lines and empty lines are skipped by the reader.
func readCSV(data []byte) ([]sheetRecord, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []sheetRecord
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		records = append(records, sheetRecord{line: line, cells: cells})
	}
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func (p *SpreadsheetParser) rows(records []sheetRecord) ([]SheetRow, error) {
	headerAt := -1
	for i, rec := range records {
		if !blank(rec.cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, apperror.Structural(CodeEmptyFile, "file has no header row")
	}

	var index [columnCount]int
	for i := range index {
		index[i] = -1
	}
	for pos, name := range records[headerAt].cells {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.ReplaceAll(key, " ", "_")
		if col, ok := headerAliases[key]; ok && index[col] < 0 {
			index[col] = pos
		}
	}
	var missing []string
	for col := colQuestion; col <= colCorrect; col++ {
		if index[col] < 0 {
			missing = append(missing, columnNames[col])
		}
	}
	if len(missing) > 0 {
		return nil, apperror.Structural(CodeMissingHeader, "required columns are missing from the header row", missing...)
	}

	cell := func(rec []string, col column) string {
		pos := index[col]
		if pos < 0 || pos >= len(rec) {
			return ""
		}
		return rec[pos]
	}

	var out []SheetRow
	for i := headerAt + 1; i < len(records); i++ {
		rec := records[i].cells
		if blank(rec) {
			continue
		}
		if len(out) == p.maxRows {
			return nil, apperror.Structural(CodeTooManyRows, fmt.Sprintf("file has more than %d data rows", p.maxRows))
		}
		out = append(out, SheetRow{
			Number: records[i].line,
			Question: dto.UploadQuestion{
				QuestionText:  cell(rec, colQuestion),
				OptionA:       cell(rec, colOptionA),
				OptionB:       cell(rec, colOptionB),
				OptionC:       cell(rec, colOptionC),
				OptionD:       cell(rec, colOptionD),
				CorrectAnswer: cell(rec, colCorrect),
				Category:      cell(rec, colCategory),
				Difficulty:    cell(rec, colDifficulty),
			},
		})
	}
	return out, nil
}
