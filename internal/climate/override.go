package climate

import (
	"fmt"
	"time"
)

// OverrideManager issues, expires and resolves manual override directives.
type OverrideManager struct {
	defaultDuration time.Duration
}

// NewOverrideManager uses defaultDuration for overrides issued without one.
// Zero means such overrides never expire.
func NewOverrideManager(defaultDuration time.Duration) OverrideManager {
	return OverrideManager{defaultDuration: defaultDuration}
}

// Issue builds an active directive.
//
// Parameters:
//   - mode: Any valid Mode
//   - target: Optional setpoint, clamped later by the policy
//   - setBy: Who asked (user ID or "api")
//   - duration: Lifetime; zero selects the default
//   - now: Issue time
func (m OverrideManager) Issue(mode Mode, target *float64, setBy string, duration time.Duration, now time.Time) (*OverrideDirective, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: mode %q", ErrInvalidOverride, mode)
	}
	if duration < 0 {
		return nil, fmt.Errorf("%w: negative duration %v", ErrInvalidOverride, duration)
	}
	if duration == 0 {
		duration = m.defaultDuration
	}

	d := &OverrideDirective{
		Active:     true,
		Mode:       mode,
		TargetTemp: copyFloat(target),
		SetBy:      setBy,
		IssuedAt:   now,
	}
	if duration > 0 {
		expires := now.Add(duration)
		d.ExpiresAt = &expires
	}
	return d, nil
}

// ClearExpired deactivates an active directive whose expiry has passed.
// It reports whether it did so.
func (OverrideManager) ClearExpired(dc *DecisionContext, now time.Time) bool {
	if !dc.OverrideActive() || !dc.Override.Expired(now) {
		return false
	}
	dc.Override.Active = false
	return true
}

// Resolve returns the overridden mode if a live directive exists.
// An expired directive is cleared and the caller falls through to the policy.
func (m OverrideManager) Resolve(dc *DecisionContext, now time.Time) (Mode, string, bool) {
	m.ClearExpired(dc, now)
	if !dc.OverrideActive() {
		return "", "", false
	}
	return dc.Override.Mode, OverrideReasoning(dc.Override.Mode), true
}
