// Gray Logic Climate - HVAC decision engine
//
// This is the main entry point for the Gray Logic climate service. It reads
// indoor and outdoor temperatures from protocol bridges over MQTT, decides
// whether the site's heat pumps and fan coils should heat, cool or idle,
// and commands them back through the same bridges.
//
// Usage:
//
//	graylogic-climate                   run the service
//	graylogic-climate token -sub alice -role operator
//	                                    print a bearer token for the API
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "github.com/nerrad567/gray-logic-climate/migrations"

	"github.com/nerrad567/gray-logic-climate/internal/api"
	"github.com/nerrad567/gray-logic-climate/internal/auth"
	"github.com/nerrad567/gray-logic-climate/internal/bridges/hvac"
	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/engine"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/kafka"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-climate/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const (
	// shutdownTimeout bounds the engine drain on exit.
	shutdownTimeout = 15 * time.Second

	// pruneInterval is how often the decision log retention runs.
	pruneInterval = 24 * time.Hour
)

func main() {
	// A missing .env is normal in production.
	_ = godotenv.Load() //nolint:errcheck // optional file

	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear start-up sequence
	log := logging.Default()
	log.Info("starting Gray Logic Climate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Domain validation happens before any connection is made so a bad
	// climate section fails fast.
	settings, err := settingsFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("climate settings: %w", err)
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	deps := engine.Deps{
		Repository: engine.NewSQLiteDecisionRepository(db.DB),
		State:      mqttClient,
		Logger:     log.Component("engine"),
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Site.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		deps.Metrics = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if cfg.Kafka.Enabled {
		ledger, kafkaErr := kafka.NewPublisher(cfg.Kafka)
		if kafkaErr != nil {
			return fmt.Errorf("creating Kafka publisher: %w", kafkaErr)
		}
		defer func() {
			log.Info("closing Kafka publisher")
			if closeErr := ledger.Close(); closeErr != nil {
				log.Error("error closing Kafka publisher", "error", closeErr)
			}
		}()
		deps.Ledger = ledger
		log.Info("decision ledger enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		log.Info("Kafka decision ledger disabled")
	}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log.Component("websocket"))
		go hub.Run(ctx)
		deps.Hub = hub
	}

	// Entities and sensors may share a state topic; the router gives each
	// side its own subscription.
	router := hvac.NewRouter(mqttClient)
	actuator := hvac.NewActuator(router.Client("actuator"), settings, log.Component("hvac"))
	if subErr := actuator.Subscribe(); subErr != nil {
		return fmt.Errorf("subscribing to entity state: %w", subErr)
	}
	defer func() {
		if unsubErr := actuator.Unsubscribe(); unsubErr != nil {
			log.Warn("error unsubscribing entity state", "error", unsubErr)
		}
	}()
	deps.Actuator = actuator

	adapter, err := engine.NewAdapter(cfg.Climate.Engine, settings, engine.Config{SiteID: cfg.Site.ID}, deps)
	if err != nil {
		return fmt.Errorf("creating climate engine: %w", err)
	}
	if startErr := adapter.Start(ctx); startErr != nil {
		return fmt.Errorf("starting climate engine: %w", startErr)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		if stopErr := adapter.Stop(stopCtx); stopErr != nil {
			log.Error("error stopping climate engine", "error", stopErr)
		}
	}()

	listener := hvac.NewSensorListener(router.Client("sensors"), settings.Sensors, adapter, log.Component("sensors"))
	if startErr := listener.Start(ctx); startErr != nil {
		return fmt.Errorf("starting sensor listener: %w", startErr)
	}
	defer func() {
		log.Info("stopping sensor listener")
		if stopErr := listener.Stop(); stopErr != nil {
			log.Warn("error stopping sensor listener", "error", stopErr)
		}
	}()

	if cfg.API.Enabled {
		srv, apiErr := api.New(api.Deps{
			Config:    cfg.API,
			WS:        cfg.WebSocket,
			Security:  cfg.Security,
			Logger:    log.Component("api"),
			Climate:   adapter,
			Decisions: engine.NewSQLiteDecisionRepository(db.DB),
			MQTT:      mqttClient,
			DB:        db,
			Hub:       hub,
			Version:   version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := srv.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if cfg.Database.DecisionRetentionDays > 0 {
		retention := time.Duration(cfg.Database.DecisionRetentionDays) * 24 * time.Hour
		go pruneLoop(ctx, engine.NewSQLiteDecisionRepository(db.DB), retention, log)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API, sensors, engine, entity
	// state subscriptions, Kafka, InfluxDB, MQTT, database. The hub stops
	// with ctx.

	log.Info("Gray Logic Climate stopped")
	return nil
}

func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// decisionPruner is the part of the decision repository pruneLoop needs.
type decisionPruner interface {
	PruneDecisions(ctx context.Context, before time.Time) (int64, error)
}

// pruneLoop deletes decision log rows older than retention, once at start
// and then every pruneInterval.
func pruneLoop(ctx context.Context, repo decisionPruner, retention time.Duration, log *logging.Logger) {
	prune := func() {
		n, err := repo.PruneDecisions(ctx, time.Now().Add(-retention))
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Warn("decision log prune failed", "error", err)
			}
			return
		}
		if n > 0 {
			log.Info("decision log pruned", "deleted", n, "retention", retention)
		}
	}

	prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// settingsFromConfig converts the climate config section into engine
// settings and validates them.
func settingsFromConfig(cfg *config.Config) (climate.Settings, error) {
	c := cfg.Climate

	loc := time.UTC
	if cfg.Site.Timezone != "" {
		l, err := time.LoadLocation(cfg.Site.Timezone)
		if err != nil {
			return climate.Settings{}, fmt.Errorf("loading time zone %q: %w", cfg.Site.Timezone, err)
		}
		loc = l
	}

	s := climate.Settings{
		Heating: modeThresholds(c.Thresholds.Heating),
		Cooling: modeThresholds(c.Thresholds.Cooling),
		Safety:  climate.Band{Min: c.Safety.MinTarget, Max: c.Safety.MaxTarget},
		Defrost: climate.DefrostSettings{
			OutdoorThreshold: c.Defrost.OutdoorThreshold,
			Period:           time.Duration(c.Defrost.Period) * time.Minute,
			Duration:         time.Duration(c.Defrost.Duration) * time.Minute,
		},
		ActiveHours: climate.ActiveHours{Start: c.ActiveHours.Start, End: c.ActiveHours.End},
		Adjustments: climate.Adjustments{
			WeekendNightOffset: c.Adjustments.WeekendNightOffset,
			ExtremeHeatOutdoor: c.Adjustments.ExtremeHeatOutdoor,
		},
		Location:         loc,
		TickInterval:     c.GetTickInterval(),
		OverrideDuration: c.GetOverrideDuration(),
		HistoryCapacity:  c.HistorySize,
		LatencyCapacity:  c.LatencySamples,
	}

	for _, e := range c.Entities {
		s.Entities = append(s.Entities, climate.Entity{
			ID:       e.ID,
			Protocol: e.Protocol,
			Enabled:  e.Enabled,
			Defrost:  e.Defrost,
		})
	}
	for _, sn := range c.Sensors {
		field := sn.Field
		if field == "" {
			field = "temperature"
		}
		s.Sensors = append(s.Sensors, climate.Sensor{
			ID:       sn.ID,
			Protocol: sn.Protocol,
			Role:     climate.SensorRole(sn.Role),
			Field:    field,
		})
	}

	if err := s.Validate(); err != nil {
		return climate.Settings{}, err
	}
	return s, nil
}

func modeThresholds(b config.ClimateBandConfig) climate.ModeThresholds {
	return climate.ModeThresholds{
		Indoor:  climate.Band{Min: b.IndoorMin, Max: b.IndoorMax},
		Outdoor: climate.Band{Min: b.OutdoorMin, Max: b.OutdoorMax},
	}
}

// runToken prints a signed API token using the configured secret.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := fs.String("sub", "", "token subject (recorded as set_by on overrides)")
	role := fs.String("role", string(auth.RoleViewer), "viewer, operator or admin")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *subject == "" {
		return errors.New("-sub is required")
	}
	if !auth.IsValidRole(auth.Role(*role)) {
		return fmt.Errorf("unknown role %q", *role)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set")
	}

	tok, err := auth.GenerateAccessToken(*subject, auth.Role(*role), []byte(cfg.Security.JWT.Secret), *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, tok)
	return err
}
