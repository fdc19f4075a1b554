package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/school-system/results/internal/grading"
	"github.com/school-system/results/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const customScaleName = "institution"

// GradingScaleService resolves the score scale an institution grades with.
type GradingScaleService struct {
	db       *gorm.DB
	fallback *grading.Scale
}

func NewGradingScaleService(db *gorm.DB, fallback *grading.Scale) *GradingScaleService {
	return &GradingScaleService{db: db, fallback: fallback}
}

// ScaleFor returns the institution's override, or the configured default
// when none is stored.
func (s *GradingScaleService) ScaleFor(ctx context.Context, institutionID uuid.UUID) (*grading.Scale, error) {
	var rule models.GradingRule
	err := s.db.WithContext(ctx).Where("institution_id = ?", institutionID).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load grading rule: %w", err)
	}
	return ruleToScale(&rule), nil
}

// Save validates scale and stores it as the institution's override.
func (s *GradingScaleService) Save(ctx context.Context, institutionID, actor uuid.UUID, scale *grading.Scale) (*models.GradingRule, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}

	bands := make([]models.GradeBand, 0, len(scale.Bands))
	for _, b := range scale.Bands {
		bands = append(bands, models.GradeBand{MinScore: b.MinScore, Grade: b.Grade, Point: b.Point, Remark: b.Remark})
	}

	var rule models.GradingRule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("institution_id = ?", institutionID).First(&rule).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		rule.InstitutionID = institutionID
		rule.RuleVersion = scale.Hash()
		rule.Bands = datatypes.NewJSONType(bands)
		rule.FloorGrade = scale.Floor.Grade
		rule.FloorPoint = scale.Floor.Point
		rule.FloorRemark = scale.Floor.Remark
		rule.UpdatedBy = &actor
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&rule).Error
		}
		return tx.Save(&rule).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save grading rule: %w", err)
	}
	return &rule, nil
}

func ruleToScale(rule *models.GradingRule) *grading.Scale {
	stored := rule.Bands.Data()
	bands := make([]grading.Band, 0, len(stored))
	for _, b := range stored {
		bands = append(bands, grading.Band{MinScore: b.MinScore, Grade: b.Grade, Point: b.Point, Remark: b.Remark})
	}
	return &grading.Scale{
		Name:  customScaleName,
		Bands: bands,
		Floor: grading.Outcome{Grade: rule.FloorGrade, Point: rule.FloorPoint, Remark: rule.FloorRemark},
	}
}
