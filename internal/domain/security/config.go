package security

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the last-known-threat axis of the alarm.
type Status string

// State is the monitoring-active axis of the alarm.
type State string

const (
	// StatusSafe means no person has been detected since the alarm was last silenced.
	StatusSafe Status = "SAFE"
	// StatusBreached means a person was detected while the alarm was armed.
	StatusBreached Status = "BREACHED"

	// StateArmed means captured images are checked and may breach the alarm.
	StateArmed State = "ARMED"
	// StateDisarmed means detection results are discarded.
	StateDisarmed State = "DISARMED"
)

// ErrInvalidConfig is returned when a status or state value is not recognised.
var ErrInvalidConfig = errors.New("invalid security config")

// Config is the persisted alarm value.
// All four combinations are representable; guards decide which transitions are legal.
type Config struct {
	// Status is the safe/breached axis.
	Status Status
	// State is the armed/disarmed axis.
	State State
}

// DefaultConfig returns the value used when nothing has been persisted yet.
func DefaultConfig() Config {
	return Config{
		Status: StatusSafe,
		State:  StateDisarmed,
	}
}

// IsArmed reports whether monitoring is active.
func (c Config) IsArmed() bool {
	return c.State == StateArmed
}

// IsBreached reports whether a breach has been recorded.
func (c Config) IsBreached() bool {
	return c.Status == StatusBreached
}

// Validate checks both axes hold known values.
func (c Config) Validate() error {
	if _, err := ParseStatus(string(c.Status)); err != nil {
		return err
	}

	if _, err := ParseState(string(c.State)); err != nil {
		return err
	}

	return nil
}

// String renders the config as "STATUS/STATE".
func (c Config) String() string {
	return fmt.Sprintf("%s/%s", c.Status, c.State)
}

// ParseStatus converts user input into a Status, ignoring case and surrounding spaces.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusSafe:
		return StatusSafe, nil
	case StatusBreached:
		return StatusBreached, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidConfig, s)
	}
}

// ParseState converts user input into a State, ignoring case and surrounding spaces.
func ParseState(s string) (State, error) {
	switch State(strings.ToUpper(strings.TrimSpace(s))) {
	case StateArmed:
		return StateArmed, nil
	case StateDisarmed:
		return StateDisarmed, nil
	default:
		return "", fmt.Errorf("%w: unknown state %q", ErrInvalidConfig, s)
	}
}

// ParseConfig builds a validated Config from its two textual axes.
func ParseConfig(status, state string) (Config, error) {
	parsedStatus, err := ParseStatus(status)
	if err != nil {
		return Config{}, err
	}

	parsedState, err := ParseState(state)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Status: parsedStatus,
		State:  parsedState,
	}, nil
}
