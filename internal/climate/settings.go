package climate

import (
	"errors"
	"fmt"
	"time"
)

// Band is a closed temperature interval in °C.
type Band struct {
	Min float64
	Max float64
}

// Contains reports whether v lies within [Min, Max].
func (b Band) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Clamp limits v to [Min, Max].
func (b Band) Clamp(v float64) float64 {
	switch {
	case v < b.Min:
		return b.Min
	case v > b.Max:
		return b.Max
	}
	return v
}

// ModeThresholds holds the indoor comfort band and the outdoor operating
// envelope for one mode.
type ModeThresholds struct {
	Indoor  Band
	Outdoor Band
}

// DefrostSettings controls the heat-pump defrost duty cycle.
type DefrostSettings struct {
	// OutdoorThreshold is the temperature at or below which coils can ice.
	OutdoorThreshold float64
	// Period is the minimum heating time between defrost cycles.
	Period time.Duration
	// Duration is how long each cycle runs.
	Duration time.Duration
}

// ActiveHours is the occupied window [Start, End) in local hours.
// Start == End means occupied all day. Start > End wraps midnight.
type ActiveHours struct {
	Start int
	End   int
}

// Contains reports whether hour falls inside the window.
func (a ActiveHours) Contains(hour int) bool {
	switch {
	case a.Start == a.End:
		return true
	case a.Start < a.End:
		return hour >= a.Start && hour < a.End
	default:
		return hour >= a.Start || hour < a.End
	}
}

// Adjustments tune the target by time of day and weather.
type Adjustments struct {
	// WeekendNightOffset relaxes the target (°C) at night on weekends.
	WeekendNightOffset float64
	// ExtremeHeatOutdoor is the outdoor temperature at which cooling boosts.
	ExtremeHeatOutdoor float64
}

// Entity is one controllable climate device.
type Entity struct {
	ID       string
	Protocol string
	Enabled  bool
	// Defrost marks heat pumps that need defrost cycles.
	Defrost bool
}

// SensorRole says which reading a sensor feeds.
type SensorRole string

// Sensor roles.
const (
	SensorIndoor  SensorRole = "indoor"
	SensorOutdoor SensorRole = "outdoor"
)

// Sensor maps a sensor ID to a reading.
type Sensor struct {
	ID       string
	Protocol string
	Role     SensorRole
	// Field is the key in the bridge state payload.
	Field string
}

// Settings is the immutable engine configuration.
type Settings struct {
	Heating ModeThresholds
	Cooling ModeThresholds

	// Safety is the hard band every committed target is clamped into.
	Safety Band

	Defrost     DefrostSettings
	ActiveHours ActiveHours
	Adjustments Adjustments

	Entities []Entity
	Sensors  []Sensor

	// Location is the site time zone used for hour and weekday.
	Location *time.Location

	TickInterval time.Duration
	// OverrideDuration is the default override lifetime. Zero = until cleared.
	OverrideDuration time.Duration

	HistoryCapacity int
	LatencyCapacity int
}

// DefaultSettings returns the factory tuning with no entities or sensors.
func DefaultSettings() Settings {
	return Settings{
		Heating: ModeThresholds{
			Indoor:  Band{Min: 19, Max: 21},
			Outdoor: Band{Min: -25, Max: 18},
		},
		Cooling: ModeThresholds{
			Indoor:  Band{Min: 24, Max: 26},
			Outdoor: Band{Min: 10, Max: 45},
		},
		Safety: Band{Min: 20, Max: 28},
		Defrost: DefrostSettings{
			OutdoorThreshold: 0,
			Period:           time.Hour,
			Duration:         10 * time.Minute,
		},
		ActiveHours: ActiveHours{Start: 7, End: 22},
		Adjustments: Adjustments{
			WeekendNightOffset: 2,
			ExtremeHeatOutdoor: 35,
		},
		Location:         time.UTC,
		TickInterval:     time.Minute,
		OverrideDuration: 2 * time.Hour,
		HistoryCapacity:  20,
		LatencyCapacity:  50,
	}
}

// Validate checks the settings for contradictions. Every problem found is
// reported; the returned error wraps ErrInvalidSettings.
func (s Settings) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	checkBand := func(name string, b Band) {
		if b.Min >= b.Max {
			add("%s: min %.1f must be below max %.1f", name, b.Min, b.Max)
		}
	}
	checkBand("heating.indoor", s.Heating.Indoor)
	checkBand("heating.outdoor", s.Heating.Outdoor)
	checkBand("cooling.indoor", s.Cooling.Indoor)
	checkBand("cooling.outdoor", s.Cooling.Outdoor)
	checkBand("safety", s.Safety)

	if s.Defrost.Period <= 0 {
		add("defrost.period must be positive")
	}
	if s.Defrost.Duration <= 0 {
		add("defrost.duration must be positive")
	} else if s.Defrost.Duration >= s.Defrost.Period {
		add("defrost.duration %v must be shorter than defrost.period %v", s.Defrost.Duration, s.Defrost.Period)
	}

	if h := s.ActiveHours.Start; h < 0 || h > 23 {
		add("active_hours.start %d outside 0-23", h)
	}
	if h := s.ActiveHours.End; h < 0 || h > 23 {
		add("active_hours.end %d outside 0-23", h)
	}
	if s.Adjustments.WeekendNightOffset < 0 {
		add("adjustments.weekend_night_offset must not be negative")
	}

	enabled := 0
	seen := make(map[string]bool)
	for i, e := range s.Entities {
		if e.ID == "" {
			add("entities[%d]: id is required", i)
			continue
		}
		if seen[e.ID] {
			add("entities[%d]: duplicate id %q", i, e.ID)
		}
		seen[e.ID] = true
		if e.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		add("at least one enabled entity is required")
	}

	seen = make(map[string]bool)
	for i, sn := range s.Sensors {
		if sn.ID == "" {
			add("sensors[%d]: id is required", i)
			continue
		}
		if seen[sn.ID] {
			add("sensors[%d]: duplicate id %q", i, sn.ID)
		}
		seen[sn.ID] = true
		if sn.Role != SensorIndoor && sn.Role != SensorOutdoor {
			add("sensors[%d]: unknown role %q", i, sn.Role)
		}
	}

	if s.TickInterval <= 0 {
		add("tick interval must be positive")
	}
	if s.OverrideDuration < 0 {
		add("override duration must not be negative")
	}
	if s.HistoryCapacity < 1 {
		add("history capacity must be at least 1")
	}
	if s.LatencyCapacity < 1 {
		add("latency capacity must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

// EnabledEntityIDs returns the IDs of enabled entities in configuration order.
func (s Settings) EnabledEntityIDs() []string {
	var ids []string
	for _, e := range s.Entities {
		if e.Enabled {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// DefrostEntityIDs returns enabled, defrost-capable entity IDs.
func (s Settings) DefrostEntityIDs() []string {
	var ids []string
	for _, e := range s.Entities {
		if e.Enabled && e.Defrost {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// SensorByID looks up a configured sensor.
func (s Settings) SensorByID(id string) (Sensor, bool) {
	for _, sn := range s.Sensors {
		if sn.ID == id {
			return sn, true
		}
	}
	return Sensor{}, false
}

// Zone returns the configured site time zone, defaulting to UTC.
func (s Settings) Zone() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
