package shared

import "testing"

func TestResultKeyNormalized(t *testing.T) {
	key := ResultKey{
		StudentID:       "  me24034 ",
		AcademicSession: " 2023-2024 ",
		Year:            "1 ",
		Semester:        " 1",
	}

	got := key.Normalized()
	want := ResultKey{StudentID: "ME24034", AcademicSession: "2023-2024", Year: "1", Semester: "1"}
	if got != want {
		t.Errorf("Normalized() = %+v, want %+v", got, want)
	}

	// Normalization is idempotent
	if got.Normalized() != got {
		t.Error("Expected normalization to be idempotent")
	}
}

func TestResultKeyCompleteness(t *testing.T) {
	complete := ResultKey{StudentID: "ME24034", AcademicSession: "2023-2024", Year: "1", Semester: "1"}
	if !complete.IsComplete() {
		t.Error("Expected complete key")
	}
	if fields := complete.MissingFields(); len(fields) != 0 {
		t.Errorf("Expected no missing fields, got %v", fields)
	}

	partial := ResultKey{StudentID: "ME24034", Semester: "1"}
	if partial.IsComplete() {
		t.Error("Expected incomplete key")
	}
	fields := partial.MissingFields()
	if len(fields) != 2 || fields[0] != "academic_session" || fields[1] != "year" {
		t.Errorf("Unexpected missing fields: %v", fields)
	}
}

func TestIsValidStudentID(t *testing.T) {
	valid := []string{"ME24034", "ME12345", "ME123456"}
	for _, id := range valid {
		if !IsValidStudentID(id) {
			t.Errorf("Expected %q to be valid", id)
		}
	}

	invalid := []string{"me24034", "ME2403", "CE24034", "ME24034X", ""}
	for _, id := range invalid {
		if IsValidStudentID(id) {
			t.Errorf("Expected %q to be invalid", id)
		}
	}
}

func TestGradeRank(t *testing.T) {
	if GradeRank("A+") >= GradeRank("A") {
		t.Error("Expected A+ to sort before A")
	}
	if GradeRank("F") >= GradeRank("unknown") {
		t.Error("Expected known grades to sort before unknown ones")
	}
	if GradeRank("B-") >= GradeRank("C+") {
		t.Error("Expected B- to sort before C+")
	}
}
