package result

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"me_result_portal/backend/internal/shared"
)

// BatchParams are the upload-level parameters an admin supplies once for the
// whole spreadsheet; they are copied onto every extracted candidate.
type BatchParams struct {
	Semester string
	Year     string
	Session  string
}

// Extract parses the first worksheet of an uploaded spreadsheet into an
// ordered list of StudentResult candidates (row order preserved). Rows whose
// mandatory columns or values are missing are skipped silently; extraction is
// best-effort, not strict validation. Duplicates are not filtered here; that
// happens at publish time. The function never touches storage.
func Extract(data []byte, params BatchParams) ([]shared.StudentResult, error) {
	var missing []string
	if len(data) == 0 {
		missing = append(missing, "file")
	}
	if strings.TrimSpace(params.Semester) == "" {
		missing = append(missing, "semester")
	}
	if strings.TrimSpace(params.Year) == "" {
		missing = append(missing, "year")
	}
	if strings.TrimSpace(params.Session) == "" {
		missing = append(missing, "session")
	}
	if len(missing) > 0 {
		return nil, shared.NewValidationError(missing...)
	}

	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrParse, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", shared.ErrParse)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrParse, err)
	}
	if len(rows) < 2 {
		return []shared.StudentResult{}, nil
	}

	headers := rows[0]
	results := make([]shared.StudentResult, 0, len(rows)-1)
	for _, cells := range rows[1:] {
		candidate, ok := normalizeRow(NewRow(headers, cells), params)
		if !ok {
			continue
		}
		results = append(results, candidate)
	}

	return results, nil
}

// normalizeRow builds one StudentResult candidate from a resolved row plus
// the batch parameters. Returns ok=false when the row cannot supply all of
// the mandatory fields (student id, name, cgpa, total credit) - either
// because no header resolved or because the cell itself is empty.
func normalizeRow(row Row, params BatchParams) (shared.StudentResult, bool) {
	cols, ok := ResolveColumns(row.Headers)
	if !ok {
		return shared.StudentResult{}, false
	}

	studentID := row.Cell(cols.StudentID)
	name := row.Cell(cols.Name)
	cgpa := row.Cell(cols.CGPA)
	totalCredit := row.Cell(cols.TotalCredit)
	if studentID == "" || name == "" || cgpa == "" || totalCredit == "" {
		return shared.StudentResult{}, false
	}

	var rawBacklogs string
	if cols.Backlogs != "" {
		rawBacklogs = row.Cell(cols.Backlogs)
	}
	var grade string
	if cols.Grade != "" {
		grade = row.Cell(cols.Grade)
	}

	entries := ParseBacklogs(rawBacklogs)
	backlogs, err := EncodeBacklogs(entries)
	if err != nil {
		return shared.StudentResult{}, false
	}

	return shared.StudentResult{
		StudentID:       strings.ToUpper(strings.TrimSpace(studentID)),
		Name:            name,
		CGPA:            cgpa,
		TotalCredit:     totalCredit,
		Grade:           grade,
		HasBacklogs:     len(entries) > 0,
		Backlogs:        backlogs,
		Semester:        strings.TrimSpace(params.Semester),
		Year:            strings.TrimSpace(params.Year),
		AcademicSession: strings.TrimSpace(params.Session),
	}, true
}
