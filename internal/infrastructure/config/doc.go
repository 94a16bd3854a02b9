// Package config handles loading and validating Gray Logic Climate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (GRAYLOGIC_*)
//   - Validation of required fields and the climate section's shape
//   - Default value handling
//
// Load applies defaults first, then the YAML file, then environment
// overrides, and validates last. Domain checks on the climate thresholds
// (band ordering, defrost timing) belong to climate.Settings.Validate; this
// package only checks that the section is well formed.
//
// Security Considerations:
//   - Sensitive values (MQTT password, InfluxDB token, JWT secret) should be
//     set via environment variables or a .env file
//   - The config file should have restricted permissions (0600)
//   - The API refuses to start without a JWT secret of at least 32 characters
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Climate.Engine, cfg.Climate.GetTickInterval())
package config
