// Package recognizer implements the attendance matching policy and the
// live recognition session it feeds.
package recognizer

import "github.com/smartclass/attendance/internal/database"

// Candidate is an enrolled student under consideration for a frame.
// Descriptors are in stored (capture) order.
type Candidate struct {
	StudentID   string
	Name        string
	Descriptors [][]float32
}

// Match is an accepted (candidate, descriptor) pair.
type Match struct {
	StudentID string
	Name      string
	Distance  float64
}

// CandidatesFromStudents converts stored students to matcher candidates,
// preserving enrollment order.
func CandidatesFromStudents(students []database.Student) []Candidate {
	candidates := make([]Candidate, 0, len(students))
	for i := range students {
		s := &students[i]
		c := Candidate{StudentID: s.ID, Name: s.Name}
		for j := range s.Descriptors {
			c.Descriptors = append(c.Descriptors, s.Descriptors[j].Embedding)
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// FirstMatch compares a query descriptor against every reference descriptor
// of every not-yet-recognized candidate and accepts the first pair whose
// Euclidean distance falls strictly under the threshold.
//
// Candidates are visited in slice order and, per candidate, descriptors in
// stored order. There is no best-match selection across candidates; the
// first hit ends the scan. Returns nil when no pair is under threshold:
// nobody recognized this frame, which is not an error.
func FirstMatch(query []float32, candidates []Candidate, recognized map[string]bool, threshold float64) *Match {
	for i := range candidates {
		c := &candidates[i]
		if recognized[c.StudentID] {
			continue
		}
		for _, ref := range c.Descriptors {
			d := database.EuclideanDistance(query, ref)
			if d < threshold {
				return &Match{StudentID: c.StudentID, Name: c.Name, Distance: d}
			}
		}
	}
	return nil
}
