package enrollment

import (
	"reflect"
	"testing"
)

func graded(term string, credits int, status Status, grade float64) Enrollment {
	return Enrollment{Term: term, Credits: credits, Status: status, Grade: &grade}
}

func TestNewTranscript(t *testing.T) {
	enrs := []Enrollment{
		graded("2025-2", 6, StatusPassed, 9),
		graded("2025-1", 6, StatusPassed, 8),
		graded("2025-1", 4, StatusPassed, 6.5),
		graded("2025-1", 5, StatusFailed, 3),
		{Term: "2025-2", Credits: 5, Status: StatusActive},
		graded("2025-2", 4, StatusPassed, 7),
	}

	tr := NewTranscript("S1", enrs)

	if tr.StudentID != "S1" {
		t.Errorf("NewTranscript() StudentID = %v, want S1", tr.StudentID)
	}
	gotTerms := make([]string, 0, len(tr.Terms))
	for _, term := range tr.Terms {
		gotTerms = append(gotTerms, term.Term)
	}
	if want := []string{"2025-1", "2025-2"}; !reflect.DeepEqual(gotTerms, want) {
		t.Fatalf("NewTranscript() terms = %v, want %v", gotTerms, want)
	}

	tests := []struct {
		term        TermRecord
		wantLen     int
		wantCredits int
		wantAverage float64
	}{
		// (8*6 + 6.5*4) / 10
		{term: tr.Terms[0], wantLen: 3, wantCredits: 10, wantAverage: 7.4},
		// (9*6 + 7*4) / 10
		{term: tr.Terms[1], wantLen: 2, wantCredits: 10, wantAverage: 8.2},
	}
	for _, tt := range tests {
		t.Run(tt.term.Term, func(t *testing.T) {
			if len(tt.term.Enrollments) != tt.wantLen {
				t.Errorf("enrollments = %d, want %d", len(tt.term.Enrollments), tt.wantLen)
			}
			if tt.term.Credits != tt.wantCredits {
				t.Errorf("credits = %d, want %d", tt.term.Credits, tt.wantCredits)
			}
			if tt.term.Average != tt.wantAverage {
				t.Errorf("average = %v, want %v", tt.term.Average, tt.wantAverage)
			}
		})
	}

	if tr.Passed != 4 || tr.Failed != 1 {
		t.Errorf("NewTranscript() passed/failed = %d/%d, want 4/1", tr.Passed, tr.Failed)
	}
	if tr.CreditsEarned != 20 {
		t.Errorf("NewTranscript() CreditsEarned = %d, want 20", tr.CreditsEarned)
	}
	// (48 + 26 + 54 + 28) / 20 = 7.8
	if tr.Average != 7.8 {
		t.Errorf("NewTranscript() Average = %v, want 7.8", tr.Average)
	}
}

func TestNewTranscript_empty(t *testing.T) {
	tr := NewTranscript("S1", nil)
	if len(tr.Terms) != 0 || tr.Average != 0 || tr.CreditsEarned != 0 {
		t.Errorf("NewTranscript() = %+v, want an empty transcript", tr)
	}
	if tr.Terms == nil {
		t.Errorf("NewTranscript() Terms must not be nil")
	}
}
