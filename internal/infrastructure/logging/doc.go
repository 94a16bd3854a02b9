// Package logging provides structured logging for the Gray Logic climate service.
//
// It wraps log/slog so every record carries the service name and build
// version, and so each subsystem can tag its records with a component name.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("engine").Info("decision committed", "mode", "heating")
//
// Never log secrets such as JWT signing keys or broker passwords.
package logging
