package security

import "errors"

// Guard rejection reasons. They are wrapped into an *Error of KindInvalidTransition.
var (
	// ErrAlreadyArmed rejects Arm when monitoring is already active.
	ErrAlreadyArmed = errors.New("Security can not be armed with it in a state of ARMED already.") //nolint:revive,staticcheck // Message is returned to clients verbatim.
	// ErrBreached rejects Arm while a breach is still recorded.
	ErrBreached = errors.New("Security can not be armed with security status BREACHED.") //nolint:revive,staticcheck // Message is returned to clients verbatim.
	// ErrNotArmed rejects Silence when monitoring is inactive.
	ErrNotArmed = errors.New("Security cannot be silenced with it in a DISARMED state.") //nolint:revive,staticcheck // Message is returned to clients verbatim.
	// ErrAlreadySafe rejects Silence when there is nothing to silence.
	ErrAlreadySafe = errors.New("Security cannot be silenced with it in a SAFE status.") //nolint:revive,staticcheck // Message is returned to clients verbatim.
)

// Arm activates monitoring. It is legal only from (SAFE, DISARMED).
func Arm(cfg Config) (Config, error) {
	switch {
	case cfg.State == StateArmed:
		return cfg, rejected(ErrAlreadyArmed)
	case cfg.Status == StatusBreached:
		return cfg, rejected(ErrBreached)
	}

	cfg.State = StateArmed

	return cfg, nil
}

// Silence acknowledges a breach. It is legal only from (BREACHED, ARMED)
// and always lands on (SAFE, DISARMED).
func Silence(cfg Config) (Config, error) {
	switch {
	case cfg.State == StateDisarmed:
		return cfg, rejected(ErrNotArmed)
	case cfg.Status == StatusSafe:
		return cfg, rejected(ErrAlreadySafe)
	}

	return Config{
		Status: StatusSafe,
		State:  StateDisarmed,
	}, nil
}

// Disarm deactivates monitoring from any value, keeping the status.
func Disarm(cfg Config) Config {
	cfg.State = StateDisarmed

	return cfg
}

// RecordBreach marks the alarm breached when it is armed.
// The boolean is false when the alarm is disarmed and the detection must be discarded.
// Re-applying it to an already breached config yields the same value and true,
// so callers still persist it.
func RecordBreach(cfg Config) (Config, bool) {
	if cfg.State != StateArmed {
		return cfg, false
	}

	cfg.Status = StatusBreached

	return cfg, true
}

// Deactivate silences the alarm when it can be silenced and disarms it otherwise.
//
// Deprecated: this folds two operations together; use Silence or Disarm.
func Deactivate(cfg Config) Config {
	if silenced, err := Silence(cfg); err == nil {
		return silenced
	}

	return Disarm(cfg)
}

func rejected(reason error) *Error {
	return &Error{
		Kind:   KindInvalidTransition,
		Detail: reason.Error(),
		Err:    reason,
	}
}
