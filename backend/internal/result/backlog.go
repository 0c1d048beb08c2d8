package result

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"me_result_portal/backend/internal/shared"
)

// backlogPattern matches one "<credit>(<course>)" fragment inside a
// lost-credit cell, e.g. "3.00(Fluid Mechanics) 2.00(Thermodynamics)".
var backlogPattern = regexp.MustCompile(`([\d.]+)\(([^)]+)\)`)

// ParseBacklogs extracts failed-course entries from the free-text lost-credit
// cell, in left-to-right order. A cell is only considered a candidate when it
// contains an opening parenthesis; anything else (including malformed text
// that has "(" but never matches the credit-prefix pattern) yields no
// backlogs rather than an error.
func ParseBacklogs(raw string) []shared.Backlog {
	if !strings.Contains(raw, "(") {
		return nil
	}

	matches := backlogPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	entries := make([]shared.Backlog, 0, len(matches))
	for _, m := range matches {
		credit, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		entries = append(entries, shared.Backlog{Course: m[2], CreditLost: credit})
	}

	if len(entries) == 0 {
		return nil
	}
	return entries
}

// EncodeBacklogs serializes backlog entries into the string form persisted
// on a StudentResult. An empty sequence serializes to "".
func EncodeBacklogs(entries []shared.Backlog) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to serialize backlogs: %w", err)
	}
	return string(data), nil
}

// DecodeBacklogs inverts EncodeBacklogs exactly
func DecodeBacklogs(serialized string) ([]shared.Backlog, error) {
	if strings.TrimSpace(serialized) == "" {
		return nil, nil
	}

	var entries []shared.Backlog
	if err := json.Unmarshal([]byte(serialized), &entries); err != nil {
		return nil, fmt.Errorf("failed to deserialize backlogs: %w", err)
	}
	return entries, nil
}
