package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Gray Logic climate service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Climate   ClimateConfig   `yaml:"climate"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	// DecisionRetentionDays bounds the decision log. 0 keeps everything.
	DecisionRetentionDays int `yaml:"decision_retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// KafkaConfig contains settings for the decision ledger stream.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	// WriteTimeout is in seconds.
	WriteTimeout int `yaml:"write_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// AccessTokenTTL is in minutes.
	AccessTokenTTL int `yaml:"access_token_ttl"`
}

// ClimateConfig holds the decision engine tuning.
//
// Durations are expressed in whole seconds or minutes, matching the rest of the
// file. Range checks beyond "is it present" live in climate.Settings.Validate.
type ClimateConfig struct {
	// Engine selects the execution strategy: "graph" or "statechart".
	Engine string `yaml:"engine"`
	// TickInterval is the periodic re-evaluation interval in seconds.
	TickInterval int `yaml:"tick_interval"`
	// OverrideDuration is the default manual override lifetime in minutes. 0 = until cleared.
	OverrideDuration int `yaml:"override_duration"`
	HistorySize      int `yaml:"history_size"`
	LatencySamples   int `yaml:"latency_samples"`

	Thresholds  ClimateThresholdsConfig  `yaml:"thresholds"`
	Safety      ClimateSafetyConfig      `yaml:"safety"`
	Defrost     ClimateDefrostConfig     `yaml:"defrost"`
	ActiveHours ClimateActiveHoursConfig `yaml:"active_hours"`
	Adjustments ClimateAdjustmentsConfig `yaml:"adjustments"`
	Entities    []ClimateEntityConfig    `yaml:"entities"`
	Sensors     []ClimateSensorConfig    `yaml:"sensors"`
}

// ClimateThresholdsConfig holds the per-mode comfort bands.
type ClimateThresholdsConfig struct {
	Heating ClimateBandConfig `yaml:"heating"`
	Cooling ClimateBandConfig `yaml:"cooling"`
}

// ClimateBandConfig holds indoor and outdoor bounds in °C.
type ClimateBandConfig struct {
	IndoorMin  float64 `yaml:"indoor_min"`
	IndoorMax  float64 `yaml:"indoor_max"`
	OutdoorMin float64 `yaml:"outdoor_min"`
	OutdoorMax float64 `yaml:"outdoor_max"`
}

// ClimateSafetyConfig is the hard target band no decision may leave.
type ClimateSafetyConfig struct {
	MinTarget float64 `yaml:"min_target"`
	MaxTarget float64 `yaml:"max_target"`
}

// ClimateDefrostConfig holds defrost duty-cycle settings.
type ClimateDefrostConfig struct {
	OutdoorThreshold float64 `yaml:"outdoor_threshold"`
	// Period and Duration are in minutes.
	Period   int `yaml:"period"`
	Duration int `yaml:"duration"`
}

// ClimateActiveHoursConfig is the occupied window [start, end) in local hours.
type ClimateActiveHoursConfig struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// ClimateAdjustmentsConfig holds time-of-day and weather target adjustments.
type ClimateAdjustmentsConfig struct {
	WeekendNightOffset float64 `yaml:"weekend_night_offset"`
	ExtremeHeatOutdoor float64 `yaml:"extreme_heat_outdoor"`
}

// ClimateEntityConfig describes one controlled climate entity.
type ClimateEntityConfig struct {
	ID       string `yaml:"id"`
	Protocol string `yaml:"protocol"`
	Enabled  bool   `yaml:"enabled"`
	Defrost  bool   `yaml:"defrost"`
}

// ClimateSensorConfig maps a sensor to an indoor or outdoor reading.
type ClimateSensorConfig struct {
	ID       string `yaml:"id"`
	Protocol string `yaml:"protocol"`
	Role     string `yaml:"role"`
	// Field is the key inside the bridge state payload. Default "temperature".
	Field string `yaml:"field"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_CLIMATE_ENGINE
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Gray Logic",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:                  "./data/climate.db",
			WALMode:               true,
			BusyTimeout:           5,
			DecisionRetentionDays: 90,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-climate",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8081,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Kafka: KafkaConfig{
			Topic:        "climate.decisions",
			WriteTimeout: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
		},
		Climate: ClimateConfig{
			Engine:           "graph",
			TickInterval:     60,
			OverrideDuration: 120,
			HistorySize:      20,
			LatencySamples:   50,
			Thresholds: ClimateThresholdsConfig{
				Heating: ClimateBandConfig{IndoorMin: 19, IndoorMax: 21, OutdoorMin: -25, OutdoorMax: 18},
				Cooling: ClimateBandConfig{IndoorMin: 24, IndoorMax: 26, OutdoorMin: 10, OutdoorMax: 45},
			},
			Safety: ClimateSafetyConfig{MinTarget: 20, MaxTarget: 28},
			Defrost: ClimateDefrostConfig{
				OutdoorThreshold: 0,
				Period:           60,
				Duration:         10,
			},
			ActiveHours: ClimateActiveHoursConfig{Start: 7, End: 22},
			Adjustments: ClimateAdjustmentsConfig{
				WeekendNightOffset: 2,
				ExtremeHeatOutdoor: 35,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Kafka
	if v := os.Getenv("GRAYLOGIC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("GRAYLOGIC_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	// Climate
	if v := os.Getenv("GRAYLOGIC_CLIMATE_ENGINE"); v != "" {
		cfg.Climate.Engine = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if c.Site.Timezone != "" {
		if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
			errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA zone", c.Site.Timezone))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}

		// Overrides move real plant, so the API never runs unauthenticated.
		const minJWTSecretLength = 32
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set GRAYLOGIC_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, "kafka.brokers is required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, "kafka.topic is required when kafka is enabled")
		}
	}

	switch c.Climate.Engine {
	case "graph", "statechart":
	default:
		errs = append(errs, fmt.Sprintf("climate.engine must be \"graph\" or \"statechart\", got %q", c.Climate.Engine))
	}
	if c.Climate.TickInterval < 1 {
		errs = append(errs, "climate.tick_interval must be at least 1 second")
	}
	if len(c.Climate.Entities) == 0 {
		errs = append(errs, "climate.entities must list at least one entity")
	}
	for i, e := range c.Climate.Entities {
		if e.ID == "" {
			errs = append(errs, fmt.Sprintf("climate.entities[%d].id is required", i))
		}
		if e.Protocol == "" {
			errs = append(errs, fmt.Sprintf("climate.entities[%d].protocol is required", i))
		}
	}
	for i, s := range c.Climate.Sensors {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("climate.sensors[%d].id is required", i))
		}
		if s.Role != "indoor" && s.Role != "outdoor" {
			errs = append(errs, fmt.Sprintf("climate.sensors[%d].role must be indoor or outdoor", i))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTickInterval returns the periodic re-evaluation interval.
func (c *ClimateConfig) GetTickInterval() time.Duration {
	return time.Duration(c.TickInterval) * time.Second
}

// GetOverrideDuration returns the default manual override lifetime.
// Zero means overrides last until explicitly cleared.
func (c *ClimateConfig) GetOverrideDuration() time.Duration {
	return time.Duration(c.OverrideDuration) * time.Minute
}
