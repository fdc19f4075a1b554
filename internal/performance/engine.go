package performance

import (
	"context"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/grading"
)

// TranscriptCache stores built transcripts keyed by student. Load reports
// whether dst was filled.
type TranscriptCache interface {
	Load(ctx context.Context, studentID uuid.UUID, dst any) (bool, error)
	Store(ctx context.Context, studentID uuid.UUID, v any) error
	Invalidate(ctx context.Context, studentID uuid.UUID) error
}

// Engine computes and persists academic performance figures. It holds no
// per-request state and is safe to share between handlers.
type Engine struct {
	repo            Repository
	scale           *grading.Scale
	classifications *grading.ClassificationScale
	cache           TranscriptCache
}

type Option func(*Engine)

// WithScale sets the score scale whose floor grade counts as a failure in
// course statistics.
func WithScale(s *grading.Scale) Option {
	return func(e *Engine) { e.scale = s }
}

func WithClassifications(c *grading.ClassificationScale) Option {
	return func(e *Engine) { e.classifications = c }
}

func WithTranscriptCache(c TranscriptCache) Option {
	return func(e *Engine) { e.cache = c }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:            repo,
		scale:           grading.DefaultScale(),
		classifications: grading.DefaultClassifications(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Student returns the profile of a student, or ErrStudentNotFound.
func (e *Engine) Student(ctx context.Context, studentID uuid.UUID) (*StudentProfile, error) {
	return e.repo.Student(ctx, studentID)
}

// Classify maps a CGPA to its degree classification.
func (e *Engine) Classify(cgpa float64) grading.Classification {
	return e.classifications.Classify(cgpa)
}

// Results lists the graded registrations of a student, optionally limited to
// one term, ordered chronologically then by course code.
func (e *Engine) Results(ctx context.Context, studentID uuid.UUID, term *TermKey) ([]GradedRegistration, error) {
	return e.repo.GradedRegistrations(ctx, RegistrationFilter{StudentID: &studentID, Term: term})
}
