package grading

import (
	"errors"
	"testing"
)

func TestDefaultScale(t *testing.T) {
	scale := DefaultScale()

	tests := []struct {
		name   string
		score  float64
		grade  string
		point  float64
		remark string
	}{
		{"Perfect Score", 100, "A", 5.0, "Excellent"},
		{"Grade A Lower Bound", 70, "A", 5.0, "Excellent"},
		{"Just Below A", 69.99, "B", 4.0, "Very Good"},
		{"Grade B Lower Bound", 60, "B", 4.0, "Very Good"},
		{"Grade C Lower Bound", 50, "C", 3.0, "Good"},
		{"Grade D Lower Bound", 45, "D", 2.0, "Fair"},
		{"Grade E Lower Bound", 40, "E", 1.0, "Pass"},
		{"Just Below E", 39.99, "F", 0.0, "Fail"},
		{"Zero Score", 0, "F", 0.0, "Fail"},
		{"Negative Score", -5, "F", 0.0, "Fail"},
		{"Above Range", 120, "A", 5.0, "Excellent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scale.Classify(tt.score)
			if got.Grade != tt.grade || got.Point != tt.point || got.Remark != tt.remark {
				t.Errorf("Score %.2f: expected %s/%.1f/%s, got %s/%.1f/%s",
					tt.score, tt.grade, tt.point, tt.remark, got.Grade, got.Point, got.Remark)
			}
		})
	}
}

func TestFiveBandScale(t *testing.T) {
	scale := FiveBandScale()

	tests := []struct {
		score    float64
		expected string
	}{
		{70, "A"},
		{60, "B"},
		{50, "C"},
		{49, "D"},
		{45, "D"},
		{44.99, "F"},
		{40, "F"},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			if got := scale.Classify(tt.score).Grade; got != tt.expected {
				t.Errorf("Score %.2f: expected grade %s, got %s", tt.score, tt.expected, got)
			}
		})
	}
}

func TestScaleByName(t *testing.T) {
	for _, name := range []string{"", "six_band", "SIX_BAND"} {
		s, err := ScaleByName(name)
		if err != nil || s.Name != ScaleSixBand {
			t.Errorf("ScaleByName(%q): expected six band scale, got %v, %v", name, s, err)
		}
	}

	s, err := ScaleByName("five_band")
	if err != nil || s.Name != ScaleFiveBand {
		t.Errorf("Expected five band scale, got %v, %v", s, err)
	}

	if _, err := ScaleByName("percentile"); !errors.Is(err, ErrUnknownScale) {
		t.Errorf("Expected ErrUnknownScale, got %v", err)
	}
}

func TestScaleValidate(t *testing.T) {
	t.Run("Built-in scales are valid", func(t *testing.T) {
		if err := DefaultScale().Validate(); err != nil {
			t.Errorf("DefaultScale: %v", err)
		}
		if err := FiveBandScale().Validate(); err != nil {
			t.Errorf("FiveBandScale: %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		s := &Scale{Floor: Outcome{Grade: "F"}}
		if err := s.Validate(); !errors.Is(err, ErrEmptyScale) {
			t.Errorf("Expected ErrEmptyScale, got %v", err)
		}
	})

	t.Run("Ascending thresholds", func(t *testing.T) {
		s := DefaultScale()
		s.Bands[1].MinScore = 75
		if err := s.Validate(); !errors.Is(err, ErrBandOrder) {
			t.Errorf("Expected ErrBandOrder, got %v", err)
		}
	})

	t.Run("Duplicate grade", func(t *testing.T) {
		s := DefaultScale()
		s.Bands[2].Grade = "A"
		if err := s.Validate(); !errors.Is(err, ErrDuplicateGrade) {
			t.Errorf("Expected ErrDuplicateGrade, got %v", err)
		}
	})

	t.Run("Threshold out of range", func(t *testing.T) {
		s := DefaultScale()
		s.Bands[0].MinScore = 170
		if err := s.Validate(); !errors.Is(err, ErrInvalidScale) {
			t.Error("Expected validation error for threshold above 100")
		}
	})

	t.Run("Missing floor", func(t *testing.T) {
		s := DefaultScale()
		s.Floor = Outcome{}
		if err := s.Validate(); !errors.Is(err, ErrInvalidScale) {
			t.Error("Expected validation error for missing floor grade")
		}
	})
}

func TestScaleHash(t *testing.T) {
	if DefaultScale().Hash() != DefaultScale().Hash() {
		t.Error("Expected hash to be stable")
	}
	if DefaultScale().Hash() == FiveBandScale().Hash() {
		t.Error("Expected different scales to hash differently")
	}
}

func TestClassifications(t *testing.T) {
	scale := DefaultClassifications()

	tests := []struct {
		cgpa     float64
		expected string
	}{
		{5.00, "First Class"},
		{4.50, "First Class"},
		{4.49, "Second Class Upper"},
		{3.50, "Second Class Upper"},
		{3.49, "Second Class Lower"},
		{2.40, "Second Class Lower"},
		{2.39, "Third Class"},
		{1.50, "Third Class"},
		{1.49, "Pass"},
		{0, "Pass"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := scale.Classify(tt.cgpa)
			if got.Label != tt.expected {
				t.Errorf("CGPA %.2f: expected %s, got %s", tt.cgpa, tt.expected, got.Label)
			}
			if got.Color == "" {
				t.Errorf("CGPA %.2f: expected a display color", tt.cgpa)
			}
		})
	}
}

func TestRound(t *testing.T) {
	tests := []struct {
		value    float64
		places   int
		expected float64
	}{
		{4.2, 2, 4.2},
		{3.666666, 2, 3.67},
		{2.675, 2, 2.68},
		{2.674, 2, 2.67},
		{2.67499, 2, 2.67},
		{4.4449999, 2, 4.44},
		{-2.675, 2, -2.68},
		{66.66666, 1, 66.7},
		{0.05, 1, 0.1},
		{64, 2, 64},
	}

	for _, tt := range tests {
		if got := Round(tt.value, tt.places); got != tt.expected {
			t.Errorf("Round(%v, %d): expected %v, got %v", tt.value, tt.places, tt.expected, got)
		}
	}
}
