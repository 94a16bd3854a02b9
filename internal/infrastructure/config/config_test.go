package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testJWTSecret = "test-secret-key-at-least-32-chars!"

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "test-site"
  timezone: "Europe/London"
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "test-climate"
  qos: 1
security:
  jwt:
    secret: "test-secret-key-at-least-32-chars!"
climate:
  engine: "statechart"
  thresholds:
    heating:
      indoor_min: 18
      indoor_max: 21
      outdoor_min: -20
      outdoor_max: 16
  entities:
    - id: "hvac-living"
      protocol: "knx"
      enabled: true
      defrost: true
  sensors:
    - id: "temp-living"
      protocol: "knx"
      role: "indoor"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
	if cfg.Climate.Engine != "statechart" {
		t.Errorf("Climate.Engine = %q, want statechart", cfg.Climate.Engine)
	}
	if cfg.Climate.Thresholds.Heating.IndoorMin != 18 {
		t.Errorf("Heating.IndoorMin = %v, want 18", cfg.Climate.Thresholds.Heating.IndoorMin)
	}
	// Unset sections keep their defaults.
	if cfg.Climate.Thresholds.Cooling.IndoorMax != 26 {
		t.Errorf("Cooling.IndoorMax = %v, want default 26", cfg.Climate.Thresholds.Cooling.IndoorMax)
	}
	if cfg.Climate.Safety.MinTarget != 20 || cfg.Climate.Safety.MaxTarget != 28 {
		t.Errorf("Safety = %+v, want 20..28", cfg.Climate.Safety)
	}
	if len(cfg.Climate.Entities) != 1 || !cfg.Climate.Entities[0].Defrost {
		t.Errorf("Entities = %+v, want one defrost-capable entity", cfg.Climate.Entities)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
api:
  enabled: false
climate:
  entities:
    - id: "hvac-1"
      protocol: "knx"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected validation error for empty site.id, got nil")
	}
	if !strings.Contains(err.Error(), "site.id is required") {
		t.Errorf("error = %v, want site.id message", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWT.Secret = testJWTSecret
		cfg.Climate.Entities = []ClimateEntityConfig{{ID: "hvac-1", Protocol: "knx", Enabled: true}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "at least 32 characters",
		},
		{
			name: "jwt secret not needed without api",
			mutate: func(c *Config) {
				c.API.Enabled = false
				c.Security.JWT.Secret = ""
			},
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Climate.Engine = "fsm" },
			wantErr: "climate.engine",
		},
		{
			name:    "no entities",
			mutate:  func(c *Config) { c.Climate.Entities = nil },
			wantErr: "climate.entities",
		},
		{
			name: "bad sensor role",
			mutate: func(c *Config) {
				c.Climate.Sensors = []ClimateSensorConfig{{ID: "t1", Protocol: "knx", Role: "attic"}}
			},
			wantErr: "role must be indoor or outdoor",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Site.Timezone = "Mars/Olympus" },
			wantErr: "site.timezone",
		},
		{
			name:    "kafka without brokers",
			mutate:  func(c *Config) { c.Kafka.Enabled = true },
			wantErr: "kafka.brokers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("GRAYLOGIC_MQTT_HOST", "mqtt.example")
	t.Setenv("GRAYLOGIC_API_PORT", "9090")
	t.Setenv("GRAYLOGIC_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("GRAYLOGIC_CLIMATE_ENGINE", "statechart")
	t.Setenv("GRAYLOGIC_JWT_SECRET", testJWTSecret)

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.MQTT.Broker.Host != "mqtt.example" {
		t.Errorf("MQTT host = %q", cfg.MQTT.Broker.Host)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("API port = %d, want 9090", cfg.API.Port)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("Kafka brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Climate.Engine != "statechart" {
		t.Errorf("Climate engine = %q", cfg.Climate.Engine)
	}
	if cfg.Security.JWT.Secret != testJWTSecret {
		t.Error("JWT secret not applied")
	}
}

func TestClimateDurations(t *testing.T) {
	c := ClimateConfig{TickInterval: 30, OverrideDuration: 90}
	if got := c.GetTickInterval(); got != 30*time.Second {
		t.Errorf("GetTickInterval() = %v", got)
	}
	if got := c.GetOverrideDuration(); got != 90*time.Minute {
		t.Errorf("GetOverrideDuration() = %v", got)
	}
}
