package domain

import (
	"context"
)

// Classifier produces a risk probability from AQ-10 features.
type Classifier interface {
	Predict(ctx context.Context, features Features) (float64, error)
}

// Narrator restates a risk assessment as clinical text.
type Narrator interface {
	Narrate(ctx context.Context, patientName string, assessment *RiskAssessment) (*ClinicalSummary, error)
}

// SessionRepository persists screening sessions. Every method is tenant scoped
// and History returns sessions in ascending creation order.
type SessionRepository interface {
	SaveSession(ctx context.Context, session *ScreeningSession) error
	GetSession(ctx context.Context, tenantID, sessionID string) (*ScreeningSession, error)
	ListSessions(ctx context.Context, tenantID, patientID string, limit int) ([]*ScreeningSession, error)
	History(ctx context.Context, tenantID, patientID string) (ScoreSeries, error)
}

// ProgressRepository persists therapy progress samples in ascending time order.
type ProgressRepository interface {
	SaveProgress(ctx context.Context, record *ProgressRecord) error
	ListProgress(ctx context.Context, tenantID, patientID string) ([]*ProgressRecord, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
