package grading

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	ScaleSixBand  = "six_band"
	ScaleFiveBand = "five_band"
)

var (
	ErrEmptyScale     = errors.New("grading scale has no bands")
	ErrBandOrder      = errors.New("grading bands must be ordered by descending threshold")
	ErrUnknownScale   = errors.New("unknown grading scale")
	ErrDuplicateGrade = errors.New("grading scale repeats a letter grade")
	ErrInvalidScale   = errors.New("invalid grading scale")
)

var validate = validator.New()

// Band is one row of a score table: scores >= MinScore earn Grade.
type Band struct {
	MinScore float64 `json:"min_score" validate:"gte=0,lte=100"`
	Grade    string  `json:"grade" validate:"required,max=2"`
	Point    float64 `json:"point" validate:"gte=0,lte=10"`
	Remark   string  `json:"remark" validate:"required,max=50"`
}

// Outcome is the grade attached to a score record.
type Outcome struct {
	Grade  string  `json:"grade"`
	Point  float64 `json:"grade_point"`
	Remark string  `json:"remark"`
}

// Scale maps total scores to outcomes. Bands are checked highest first and
// the first match wins; scores below every band (including out-of-range
// negatives) get Floor.
type Scale struct {
	Name  string  `json:"name"`
	Bands []Band  `json:"bands" validate:"required,min=1,dive"`
	Floor Outcome `json:"floor"`
}

// DefaultScale is the canonical six-band table.
func DefaultScale() *Scale {
	return &Scale{
		Name: ScaleSixBand,
		Bands: []Band{
			{MinScore: 70, Grade: "A", Point: 5.0, Remark: "Excellent"},
			{MinScore: 60, Grade: "B", Point: 4.0, Remark: "Very Good"},
			{MinScore: 50, Grade: "C", Point: 3.0, Remark: "Good"},
			{MinScore: 45, Grade: "D", Point: 2.0, Remark: "Fair"},
			{MinScore: 40, Grade: "E", Point: 1.0, Remark: "Pass"},
		},
		Floor: Outcome{Grade: "F", Point: 0.0, Remark: "Fail"},
	}
}

// FiveBandScale has no E band: D starts at 45 and everything below fails.
func FiveBandScale() *Scale {
	return &Scale{
		Name: ScaleFiveBand,
		Bands: []Band{
			{MinScore: 70, Grade: "A", Point: 5.0, Remark: "Excellent"},
			{MinScore: 60, Grade: "B", Point: 4.0, Remark: "Very Good"},
			{MinScore: 50, Grade: "C", Point: 3.0, Remark: "Good"},
			{MinScore: 45, Grade: "D", Point: 2.0, Remark: "Fair"},
		},
		Floor: Outcome{Grade: "F", Point: 0.0, Remark: "Fail"},
	}
}

// ScaleByName returns a built-in scale.
func ScaleByName(name string) (*Scale, error) {
	switch strings.ToLower(name) {
	case "", ScaleSixBand:
		return DefaultScale(), nil
	case ScaleFiveBand:
		return FiveBandScale(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScale, name)
	}
}

func (s *Scale) Classify(score float64) Outcome {
	for _, b := range s.Bands {
		if score >= b.MinScore {
			return Outcome{Grade: b.Grade, Point: b.Point, Remark: b.Remark}
		}
	}
	return s.Floor
}

// FailGrade is the letter a score below every band receives.
func (s *Scale) FailGrade() string {
	return s.Floor.Grade
}

func (s *Scale) Validate() error {
	if len(s.Bands) == 0 {
		return ErrEmptyScale
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScale, err)
	}
	if s.Floor.Grade == "" {
		return fmt.Errorf("%w: floor grade is required", ErrInvalidScale)
	}

	seen := map[string]bool{s.Floor.Grade: true}
	for i, b := range s.Bands {
		if i > 0 && b.MinScore >= s.Bands[i-1].MinScore {
			return fmt.Errorf("%w: %s (%.2f) after %s (%.2f)", ErrBandOrder,
				b.Grade, b.MinScore, s.Bands[i-1].Grade, s.Bands[i-1].MinScore)
		}
		if seen[b.Grade] {
			return fmt.Errorf("%w: %s", ErrDuplicateGrade, b.Grade)
		}
		seen[b.Grade] = true
	}
	return nil
}

// Hash identifies the band table so stored grades can be traced to the rules
// that produced them.
func (s *Scale) Hash() string {
	var sb strings.Builder
	for _, b := range s.Bands {
		fmt.Fprintf(&sb, "%.2f:%s:%.2f;", b.MinScore, b.Grade, b.Point)
	}
	fmt.Fprintf(&sb, "floor:%s:%.2f", s.Floor.Grade, s.Floor.Point)
	hash := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%x", hash[:8])
}

// ClassBand is one degree classification threshold.
type ClassBand struct {
	MinCGPA float64 `json:"min_cgpa"`
	Label   string  `json:"label"`
	Color   string  `json:"color"`
}

type Classification struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type ClassificationScale struct {
	Bands []ClassBand
	Floor Classification
}

func DefaultClassifications() *ClassificationScale {
	return &ClassificationScale{
		Bands: []ClassBand{
			{MinCGPA: 4.50, Label: "First Class", Color: "#1e7e34"},
			{MinCGPA: 3.50, Label: "Second Class Upper", Color: "#007bff"},
			{MinCGPA: 2.40, Label: "Second Class Lower", Color: "#17a2b8"},
			{MinCGPA: 1.50, Label: "Third Class", Color: "#fd7e14"},
		},
		Floor: Classification{Label: "Pass", Color: "#6c757d"},
	}
}

func (c *ClassificationScale) Classify(cgpa float64) Classification {
	for _, b := range c.Bands {
		if cgpa >= b.MinCGPA {
			return Classification{Label: b.Label, Color: b.Color}
		}
	}
	return c.Floor
}

// Round rounds half up to the given number of decimal places. The epsilon
// absorbs binary representation error such as 2.675*100 == 267.49999...
// It is meant for scores and GPAs at two places or fewer; at higher
// precision values just below a half may round up.
func Round(value float64, places int) float64 {
	p := math.Pow(10, float64(places))
	if value < 0 {
		return -math.Floor(-value*p+0.5+1e-9) / p
	}
	return math.Floor(value*p+0.5+1e-9) / p
}
