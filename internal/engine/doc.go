// Package engine runs the climate decision loop.
//
// An Engine owns the one DecisionContext. Triggers (sensor readings,
// override and system-mode commands, the periodic tick and the override
// expiry timer) are queued on a channel and consumed by a single goroutine,
// so evaluation passes never overlap. Each pass:
//
//  1. clones the context and applies the trigger's input
//  2. refreshes hour and weekday from the injected clock
//  3. runs the execution strategy (graph or statechart)
//  4. on a mode change counts the transition and appends a record
//  5. commits the clone and publishes an immutable Status snapshot
//  6. hands actuation and publication to the dispatcher goroutine
//
// A failed or panicking pass commits idle with LastError set; the engine
// keeps running.
//
// # Usage
//
//	adapter, err := engine.NewAdapter(cfg.Climate.Engine, settings, engine.Config{
//	    SiteID: cfg.Site.ID,
//	}, engine.Deps{
//	    Actuator:   actuator,
//	    Repository: engine.NewSQLiteDecisionRepository(db.DB),
//	    Hub:        hub,
//	    Logger:     log,
//	})
//	if err != nil {
//	    return err
//	}
//	if err := adapter.Start(ctx); err != nil {
//	    return err
//	}
//	defer adapter.Stop(context.Background())
//
//	status, err := adapter.HandleTemperatureChange(ctx, "temp-living", 18.5)
package engine
