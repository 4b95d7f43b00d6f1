package enrollment

import (
	"math"
	"sort"
)

type (
	TermRecord struct {
		Term        string       `json:"term"`
		Enrollments []Enrollment `json:"enrollments"`
		// credits of the passed subjects
		Credits int `json:"credits"`
		// credit-weighted average grade of the passed subjects, 0 when none passed
		Average float64 `json:"average"`
	}

	// Transcript is a student's academic history: the graded enrollments, grouped by term.
	Transcript struct {
		StudentID     string       `json:"student_id"`
		Terms         []TermRecord `json:"terms"`
		Average       float64      `json:"average"`
		CreditsEarned int          `json:"credits_earned"`
		Passed        int          `json:"passed"`
		Failed        int          `json:"failed"`
	}
)

// NewTranscript builds the transcript of studentID out of its enrollments. Active enrollments are ignored.
// Terms are sorted ascending; enrollments keep their order within a term.
func NewTranscript(studentID string, enrs []Enrollment) Transcript {
	tr := Transcript{StudentID: studentID, Terms: make([]TermRecord, 0)}
	termIdx := make(map[string]int)
	type acc struct{ points, credits float64 }
	termAccs := make(map[string]*acc)
	var total acc

	for _, enr := range enrs {
		if !enr.Status.IsCompleted() {
			continue
		}
		i, ok := termIdx[enr.Term]
		if !ok {
			tr.Terms = append(tr.Terms, TermRecord{Term: enr.Term})
			i = len(tr.Terms) - 1
			termIdx[enr.Term] = i
			termAccs[enr.Term] = new(acc)
		}
		tr.Terms[i].Enrollments = append(tr.Terms[i].Enrollments, enr)

		if enr.Status != StatusPassed || enr.Grade == nil {
			tr.Failed++
			continue
		}
		tr.Passed++
		tr.Terms[i].Credits += enr.Credits
		tr.CreditsEarned += enr.Credits
		points := *enr.Grade * float64(enr.Credits)
		termAccs[enr.Term].points += points
		termAccs[enr.Term].credits += float64(enr.Credits)
		total.points += points
		total.credits += float64(enr.Credits)
	}

	for i := range tr.Terms {
		a := termAccs[tr.Terms[i].Term]
		if a.credits > 0 {
			tr.Terms[i].Average = round2(a.points / a.credits)
		}
	}
	if total.credits > 0 {
		tr.Average = round2(total.points / total.credits)
	}
	sort.SliceStable(tr.Terms, func(i, j int) bool { return tr.Terms[i].Term < tr.Terms[j].Term })
	return tr
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
