package result

import (
	"testing"

	"me_result_portal/backend/internal/shared"
)

func TestParseBacklogs(t *testing.T) {
	t.Run("Single Entry", func(t *testing.T) {
		entries := ParseBacklogs("3(ME 1201)")
		if len(entries) != 1 {
			t.Fatalf("Expected 1 entry, got %d", len(entries))
		}
		if entries[0].Course != "ME 1201" || entries[0].CreditLost != 3 {
			t.Errorf("Unexpected entry: %+v", entries[0])
		}
	})

	t.Run("Multiple Entries", func(t *testing.T) {
		entries := ParseBacklogs("3(ME 1201), 1.5(Math 1213)")
		if len(entries) != 2 {
			t.Fatalf("Expected 2 entries, got %d", len(entries))
		}
		if entries[1].Course != "Math 1213" || entries[1].CreditLost != 1.5 {
			t.Errorf("Unexpected second entry: %+v", entries[1])
		}
	})

	t.Run("No Parenthesis Means No Backlogs", func(t *testing.T) {
		if entries := ParseBacklogs("none"); entries != nil {
			t.Errorf("Expected nil, got %+v", entries)
		}
		if entries := ParseBacklogs(""); entries != nil {
			t.Errorf("Expected nil for empty input, got %+v", entries)
		}
	})

	t.Run("Malformed Cell With Parenthesis", func(t *testing.T) {
		// A parenthesis without a leading credit number never matches
		if entries := ParseBacklogs("(ME 1201)"); entries != nil {
			t.Errorf("Expected nil, got %+v", entries)
		}
	})

	t.Run("Unparseable Credit Is Skipped", func(t *testing.T) {
		// "..." matches the credit pattern but fails float parsing
		entries := ParseBacklogs("...(Bad), 2(ME 1101)")
		if len(entries) != 1 {
			t.Fatalf("Expected 1 entry, got %d", len(entries))
		}
		if entries[0].Course != "ME 1101" {
			t.Errorf("Unexpected entry: %+v", entries[0])
		}
	})
}

func TestBacklogRoundTrip(t *testing.T) {
	t.Run("Empty List Encodes As Empty String", func(t *testing.T) {
		encoded, err := EncodeBacklogs(nil)
		if err != nil {
			t.Fatalf("EncodeBacklogs failed: %v", err)
		}
		if encoded != "" {
			t.Errorf("Expected empty string, got %q", encoded)
		}

		decoded, err := DecodeBacklogs(encoded)
		if err != nil {
			t.Fatalf("DecodeBacklogs failed: %v", err)
		}
		if decoded != nil {
			t.Errorf("Expected nil, got %+v", decoded)
		}
	})

	t.Run("Entries Survive Round Trip", func(t *testing.T) {
		original := []shared.Backlog{
			{Course: "ME 1201", CreditLost: 3},
			{Course: "Math 1213", CreditLost: 1.5},
		}

		encoded, err := EncodeBacklogs(original)
		if err != nil {
			t.Fatalf("EncodeBacklogs failed: %v", err)
		}

		decoded, err := DecodeBacklogs(encoded)
		if err != nil {
			t.Fatalf("DecodeBacklogs failed: %v", err)
		}
		if len(decoded) != len(original) {
			t.Fatalf("Expected %d entries, got %d", len(original), len(decoded))
		}
		for i := range original {
			if decoded[i] != original[i] {
				t.Errorf("Entry %d changed: %+v != %+v", i, decoded[i], original[i])
			}
		}
	})

	t.Run("Decode Rejects Garbage", func(t *testing.T) {
		if _, err := DecodeBacklogs("{not json"); err == nil {
			t.Error("Expected error for malformed input")
		}
	})
}
