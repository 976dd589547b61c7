package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/tarang-screening-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	path   string
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	return NewManagerWithFile("")
}

// NewManagerWithFile loads configuration from an explicit file path. An empty
// path searches the default locations.
func NewManagerWithFile(path string) (*Manager, error) {
	m := &Manager{v: viper.New(), path: path}
	if err := m.loadConfig(path); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources. The search paths
// apply only when no explicit file is given.
func (m *Manager) loadConfig(path string) error {
	v := m.v

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/tarang/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("TARANG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// A searched config file is optional. An explicit one must exist.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults registers a default for every key so that environment
// overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.report_base", "http://localhost:8080")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "tarang")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.local_size", 1024)
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Classifier defaults: rule-based fusion only
	v.SetDefault("classifier.model_path", "")
	v.SetDefault("classifier.endpoint", "")
	v.SetDefault("classifier.api_key", "")
	v.SetDefault("classifier.timeout", "2s")
	v.SetDefault("classifier.rate_limit", 10)
	v.SetDefault("classifier.dataset_source", "UCI Autism Screening Adult (AQ-10)")

	// Narrative defaults
	v.SetDefault("narrative.endpoint", "")
	v.SetDefault("narrative.api_key", "")
	v.SetDefault("narrative.model", "")
	v.SetDefault("narrative.timeout", "5s")

	// Engine defaults
	setEngineDefaults(v)

	// Review store defaults
	v.SetDefault("review.backend", "sqlite")
	v.SetDefault("review.data_dir", DefaultLiteConfig().DataDir)
	v.SetDefault("review.postgres_url", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// MCP defaults
	v.SetDefault("mcp.server_name", "tarang-screening")
	v.SetDefault("mcp.server_version", "1.0.0")
	v.SetDefault("mcp.transport_type", "stdio")
	v.SetDefault("mcp.request_timeout", "30s")
}

func setEngineDefaults(v *viper.Viper) {
	f := domain.DefaultFusionParams()
	v.SetDefault("engine.fusion.eye_contact_weight", f.EyeContactWeight)
	v.SetDefault("engine.fusion.motor_weight", f.MotorWeight)
	v.SetDefault("engine.fusion.questionnaire_max", f.QuestionnaireMax)
	v.SetDefault("engine.fusion.boost_lower", f.BoostLower)
	v.SetDefault("engine.fusion.boost_upper", f.BoostUpper)
	v.SetDefault("engine.fusion.boost_factor", f.BoostFactor)
	v.SetDefault("engine.fusion.rule_video_weight", f.RuleVideoWeight)
	v.SetDefault("engine.fusion.rule_questionnaire_weight", f.RuleQuestionnaireWeight)
	v.SetDefault("engine.fusion.rule_physiological_weight", f.RulePhysiologicalWeight)
	v.SetDefault("engine.fusion.reweight_trigger", f.ReweightTrigger)
	v.SetDefault("engine.fusion.reweight_shift", f.ReweightShift)
	v.SetDefault("engine.fusion.hybrid_ml_weight", f.HybridMLWeight)
	v.SetDefault("engine.fusion.hybrid_video_weight", f.HybridVideoWeight)
	v.SetDefault("engine.fusion.hybrid_questionnaire_weight", f.HybridQuestionnaireWeight)
	v.SetDefault("engine.fusion.hybrid_physiological_weight", f.HybridPhysiologicalWeight)
	v.SetDefault("engine.fusion.rule_high_dissonance", f.RuleHighDissonance)
	v.SetDefault("engine.fusion.rule_medium_dissonance", f.RuleMediumDissonance)
	v.SetDefault("engine.fusion.hybrid_high_ml_diff", f.HybridHighMLDiff)
	v.SetDefault("engine.fusion.hybrid_high_dissonance", f.HybridHighDissonance)
	v.SetDefault("engine.fusion.hybrid_medium_ml_diff", f.HybridMediumMLDiff)
	v.SetDefault("engine.fusion.hybrid_medium_dissonance", f.HybridMediumDissonance)
	v.SetDefault("engine.fusion.damping_prior", f.DampingPrior)
	v.SetDefault("engine.fusion.high_risk_threshold", f.HighRiskThreshold)
	v.SetDefault("engine.fusion.moderate_risk_threshold", f.ModerateRiskThreshold)

	t := domain.DefaultTrendParams()
	v.SetDefault("engine.trend.smoothing_window", t.SmoothingWindow)
	v.SetDefault("engine.trend.horizon", t.Horizon)
	v.SetDefault("engine.trend.dampening", t.Dampening)
	v.SetDefault("engine.trend.accelerated_slope", t.AcceleratedSlope)
	v.SetDefault("engine.trend.steady_slope", t.SteadySlope)
	v.SetDefault("engine.trend.min_confidence", t.MinConfidence)
	v.SetDefault("engine.trend.max_confidence", t.MaxConfidence)
	v.SetDefault("engine.trend.initial_confidence", t.InitialConfidence)
	v.SetDefault("engine.trend.efficacy_lower_bound", t.EfficacyLowerBound)
	v.SetDefault("engine.trend.efficacy_upper_bound", t.EfficacyUpperBound)
	v.SetDefault("engine.trend.monitor_delta_trigger", t.MonitorDeltaTrigger)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig(m.path)
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d", config.Server.RateLimit)
	}

	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if config.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if config.Database.Username == "" {
		return fmt.Errorf("database username is required")
	}

	if config.Classifier.ModelPath != "" && config.Classifier.Endpoint != "" {
		return fmt.Errorf("classifier model_path and endpoint are mutually exclusive")
	}

	if err := validateEngine(config.Engine); err != nil {
		return err
	}

	switch config.Review.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid review backend: %s", config.Review.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

func validateEngine(e domain.EngineConfig) error {
	if e.Fusion.QuestionnaireMax <= 0 {
		return fmt.Errorf("engine.fusion.questionnaire_max must be positive")
	}
	if e.Fusion.ModerateRiskThreshold >= e.Fusion.HighRiskThreshold {
		return fmt.Errorf("engine.fusion.moderate_risk_threshold must be below high_risk_threshold")
	}
	if e.Trend.SmoothingWindow < 1 {
		return fmt.Errorf("engine.trend.smoothing_window must be at least 1")
	}
	if e.Trend.Horizon < 1 {
		return fmt.Errorf("engine.trend.horizon must be at least 1")
	}
	if e.Trend.MinConfidence > e.Trend.MaxConfidence {
		return fmt.Errorf("engine.trend.min_confidence exceeds max_confidence")
	}
	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the connection string in URL form, as required by
// the migration runner.
func (m *Manager) GetDatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
