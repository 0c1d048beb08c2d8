package result

import "strings"

// Canonical field tokens searched for (case-insensitively) inside the
// spreadsheet header names. Departments export result sheets with slightly
// different header wording between batches, so matching is substring-based
// rather than exact.
const (
	tokenStudentID   = "student id"
	tokenName        = "name"
	tokenCGPA        = "gpa"
	tokenTotalCredit = "credit earned"
	tokenBacklogs    = "lost credit"
	tokenGrade       = "result"
)

// Row is one spreadsheet row resolved into an ordered header list plus a
// header -> cell-text mapping. Missing cells read as "".
type Row struct {
	Headers []string
	Cells   map[string]string
}

// NewRow pairs the sheet's header row with one data row. Rows shorter than
// the header row are padded with empty cells.
func NewRow(headers, cells []string) Row {
	row := Row{Headers: headers, Cells: make(map[string]string, len(headers))}
	for i, h := range headers {
		if h == "" {
			continue
		}
		if _, exists := row.Cells[h]; exists {
			continue // first column wins for duplicate header names
		}
		if i < len(cells) {
			row.Cells[h] = cells[i]
		} else {
			row.Cells[h] = ""
		}
	}
	return row
}

// Cell returns the cell text under the given header, or "" when absent
func (r Row) Cell(header string) string {
	return r.Cells[header]
}

// Columns names the spreadsheet header backing each canonical field.
// Optional fields (Backlogs, Grade) are "" when no header matched.
type Columns struct {
	StudentID   string
	Name        string
	CGPA        string
	TotalCredit string
	Backlogs    string
	Grade       string
}

// ResolveColumns maps the row's headers to canonical fields by
// case-insensitive substring search. When several headers match the same
// token, the first one in column order wins. Returns ok=false when any of
// the mandatory fields (student id, name, cgpa, total credit) has no
// matching header; such rows are skipped by the extraction pipeline.
func ResolveColumns(headers []string) (Columns, bool) {
	cols := Columns{
		StudentID:   findHeader(headers, tokenStudentID),
		Name:        findHeader(headers, tokenName),
		CGPA:        findHeader(headers, tokenCGPA),
		TotalCredit: findHeader(headers, tokenTotalCredit),
		Backlogs:    findHeader(headers, tokenBacklogs),
		Grade:       findHeader(headers, tokenGrade),
	}

	if cols.StudentID == "" || cols.Name == "" || cols.CGPA == "" || cols.TotalCredit == "" {
		return cols, false
	}

	return cols, true
}

// findHeader returns the first header (in column order) containing token
func findHeader(headers []string, token string) string {
	for _, h := range headers {
		if strings.Contains(strings.ToLower(h), token) {
			return h
		}
	}
	return ""
}
