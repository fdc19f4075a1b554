package services

import (
	"github.com/google/uuid"
	"github.com/school-system/results/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActionRecordResult = "record_result"
	ActionDeleteResult = "delete_result"
	ActionSyncTerm     = "sync_term"
	ActionUpdateScale  = "update_grading_scale"
	ActionCreateUser   = "create_user"
	ActionUpdateUser   = "update_user"
)

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func (s *AuditService) Log(userID uuid.UUID, action, resourceType string, resourceID uuid.UUID, before, after datatypes.JSONMap, ip string) error {
	entry := &models.AuditLog{
		ActorUserID:  userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Before:       before,
		After:        after,
		IP:           ip,
	}
	return s.db.Create(entry).Error
}

// Activity is an audit entry joined with the acting user.
type Activity struct {
	models.AuditLog
	UserName        string `json:"user_name"`
	InstitutionName string `json:"institution_name,omitempty"`
}

// Recent returns the newest audit entries, optionally limited to one resource
// type and to actors of one institution.
func (s *AuditService) Recent(resourceType string, institutionID uuid.UUID, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	query := s.db.Table("audit_logs").
		Select("audit_logs.*, users.full_name AS user_name, institutions.name AS institution_name").
		Joins("LEFT JOIN users ON audit_logs.actor_user_id = users.id").
		Joins("LEFT JOIN institutions ON users.institution_id = institutions.id").
		Order("audit_logs.timestamp DESC").
		Limit(limit)
	if resourceType != "" {
		query = query.Where("audit_logs.resource_type = ?", resourceType)
	}
	if institutionID != uuid.Nil {
		query = query.Where("users.institution_id = ?", institutionID)
	}

	activities := []Activity{}
	err := query.Scan(&activities).Error
	return activities, err
}
