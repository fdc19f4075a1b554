package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/school-system/results/internal/config"
	"github.com/school-system/results/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	var logLevel logger.LogLevel
	if cfg.Server.Env == "development" {
		logLevel = logger.Info
	} else {
		logLevel = logger.Silent
	}

	log.Printf("Attempting %s connection with DSN: %s", cfg.Database.Driver, maskPassword(cfg.Database.DSN))

	db, err := gorm.Open(dialector(cfg.Database), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection successful")
	return db, nil
}

func dialector(cfg config.DatabaseConfig) gorm.Dialector {
	if cfg.Driver == config.DriverMySQL {
		return mysql.Open(cfg.DSN)
	}
	return postgres.Open(cfg.DSN)
}

// maskPassword hides the password of URL-style and key=value DSNs.
func maskPassword(dsn string) string {
	if i := strings.Index(dsn, "password="); i >= 0 {
		end := strings.IndexByte(dsn[i:], ' ')
		if end < 0 {
			return dsn[:i] + "password=***"
		}
		return dsn[:i] + "password=***" + dsn[i+end:]
	}
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	userinfo := dsn[:at]
	colon := strings.LastIndex(userinfo, ":")
	if colon < 0 || strings.HasPrefix(userinfo[colon:], "://") {
		return dsn
	}
	return userinfo[:colon+1] + "***" + dsn[at:]
}

func Migrate(db *gorm.DB) error {
	log.Println("Running migrations...")

	err := db.AutoMigrate(
		&models.Institution{},
		&models.Department{},
		&models.AcademicSession{},
		&models.Semester{},
		&models.Course{},
		&models.Student{},
		&models.CourseRegistration{},
		&models.Result{},
		&models.SemesterGPA{},
		&models.CumulativeGPA{},
		&models.GradingRule{},
		&models.User{},
		&models.RefreshToken{},
		&models.AuditLog{},
	)
	if err != nil {
		return err
	}

	// Lookup indexes for the student-centric queries of the GPA engine.
	db.Exec("CREATE INDEX IF NOT EXISTS idx_registrations_student ON course_registrations(student_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_semester_gpas_student ON semester_gpas(student_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_courses_code ON courses(code)")

	return nil
}
