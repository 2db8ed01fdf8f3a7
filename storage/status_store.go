package storage

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hitechparadigm/youtube-video-upload-sub006/models"
)

// ErrStatusNotFound is returned when no status row exists for a project.
var ErrStatusNotFound = errors.New("project status not found")

// StatusStore tracks the per-project status row updated at each major
// pipeline transition.
type StatusStore interface {
	Set(projectID, status, message string) error
	Get(projectID string) (*models.ProjectStatus, error)
}

// MemoryStatusStore keeps status rows in memory. Used in tests and
// when no database is configured.
type MemoryStatusStore struct {
	mu   sync.RWMutex
	rows map[string]*models.ProjectStatus
}

// NewMemoryStatusStore creates an empty in-memory status store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{rows: make(map[string]*models.ProjectStatus)}
}

func (s *MemoryStatusStore) Set(projectID, status, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[projectID] = &models.ProjectStatus{
		ProjectID: projectID,
		Status:    status,
		Message:   message,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *MemoryStatusStore) Get(projectID string) (*models.ProjectStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[projectID]
	if !ok {
		return nil, ErrStatusNotFound
	}
	copied := *row
	return &copied, nil
}

// GormStatusStore persists status rows in Postgres.
type GormStatusStore struct {
	db *gorm.DB
}

// NewGormStatusStore migrates the status table and returns a store
// over the given connection.
func NewGormStatusStore(db *gorm.DB) (*GormStatusStore, error) {
	if err := db.AutoMigrate(&models.ProjectStatus{}); err != nil {
		return nil, fmt.Errorf("failed to migrate project_statuses: %w", err)
	}
	return &GormStatusStore{db: db}, nil
}

func (s *GormStatusStore) Set(projectID, status, message string) error {
	row := models.ProjectStatus{
		ProjectID: projectID,
		Status:    status,
		Message:   message,
		UpdatedAt: time.Now(),
	}
	return s.db.Save(&row).Error
}

func (s *GormStatusStore) Get(projectID string) (*models.ProjectStatus, error) {
	var row models.ProjectStatus
	err := s.db.First(&row, "project_id = ?", projectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStatusNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Connect initializes a GORM database connection with pool settings.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection test failed: %w", err)
	}

	log.Println("Database connected successfully")
	return db, nil
}
