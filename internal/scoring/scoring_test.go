package scoring

import (
	"testing"
)

func TestGradeBands(t *testing.T) {
	cases := []struct {
		total  int
		grade  string
		points int
	}{
		{0, "C", 1},
		{59, "C", 1},
		{60, "B", 5},
		{69, "B", 5},
		{70, "A", 10},
		{89, "A", 10},
		{90, "S", 20},
		{100, "S", 20},
	}
	for _, c := range cases {
		grade, points := Grade(c.total)
		if grade != c.grade || points != c.points {
			t.Errorf("Grade(%d) = %s/%d, want %s/%d", c.total, grade, points, c.grade, c.points)
		}
	}
}

func TestGradePointsMonotonic(t *testing.T) {
	prev := 0
	for total := 0; total <= 100; total++ {
		_, points := Grade(total)
		if points < prev {
			t.Fatalf("Points decreased at total %d: %d -> %d", total, prev, points)
		}
		prev = points
	}
}

func TestRubricTotal(t *testing.T) {
	r := Rubric{Creativity: 30, Effectiveness: 30, Executability: 20, Sustainability: 10, Standardization: 10}
	if got := r.Total(); got != 100 {
		t.Errorf("Total() = %d, want 100", got)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Full-marks rubric should validate: %v", err)
	}
}

func TestRubricValidate(t *testing.T) {
	valid := []Rubric{
		{},
		{Creativity: 10, Effectiveness: 20, Executability: 15, Sustainability: 5, Standardization: 5},
	}
	for _, r := range valid {
		if err := r.Validate(); err != nil {
			t.Errorf("Rubric %+v should validate: %v", r, err)
		}
	}

	invalid := []Rubric{
		{Creativity: 15},      // not in {0,10,20,30}
		{Effectiveness: -10},  // negative
		{Executability: 30},   // capped at 20
		{Sustainability: 7},   // not in {0,5,10}
		{Standardization: 20}, // capped at 10
	}
	for _, r := range invalid {
		if err := r.Validate(); err == nil {
			t.Errorf("Rubric %+v should not validate", r)
		}
	}
}
