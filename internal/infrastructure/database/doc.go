// Package database provides SQLite connectivity for the climate service.
//
// The database holds the decision provenance log and nothing else; live
// telemetry stays in memory. The package manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Additive schema migrations registered by the migrations package
//   - Health checks for the /health endpoint
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
