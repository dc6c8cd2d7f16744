// Package scoring turns review rubric sub-scores into a total, a
// letter grade and a point award. It is pure: the same rubric always
// produces the same result.
package scoring

import (
	"fmt"

	"tpm-hub/internal/models"
)

// Rubric holds the five review sub-scores. Each one only accepts the
// discrete values of its category.
type Rubric struct {
	Creativity      int `json:"creativity"`      // 0, 10, 20, 30
	Effectiveness   int `json:"effectiveness"`   // 0, 10, 20, 30
	Executability   int `json:"executability"`   // 0, 10, 15, 20
	Sustainability  int `json:"sustainability"`  // 0, 5, 10
	Standardization int `json:"standardization"` // 0, 5, 10
}

var allowedValues = map[string][]int{
	"creativity":      {0, 10, 20, 30},
	"effectiveness":   {0, 10, 20, 30},
	"executability":   {0, 10, 15, 20},
	"sustainability":  {0, 5, 10},
	"standardization": {0, 5, 10},
}

// Validate checks every sub-score against its value set.
func (r Rubric) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"creativity", r.Creativity},
		{"effectiveness", r.Effectiveness},
		{"executability", r.Executability},
		{"sustainability", r.Sustainability},
		{"standardization", r.Standardization},
	}
	for _, f := range fields {
		if !contains(allowedValues[f.name], f.value) {
			return fmt.Errorf("invalid %s score %d (allowed: %v)", f.name, f.value, allowedValues[f.name])
		}
	}
	return nil
}

// Total sums the sub-scores; the range is 0 to 100.
func (r Rubric) Total() int {
	return r.Creativity + r.Effectiveness + r.Executability + r.Sustainability + r.Standardization
}

// Grade maps a rubric total to a letter grade and its point award.
// Bands are inclusive on the lower bound and evaluated highest first.
func Grade(total int) (grade string, points int) {
	switch {
	case total >= 90:
		return models.GradeS, 20
	case total >= 70:
		return models.GradeA, 10
	case total >= 60:
		return models.GradeB, 5
	default:
		return models.GradeC, 1
	}
}

func contains(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
