package detector

import (
	"strings"

	"github.com/oshokin/home-security/internal/domain/security"
)

// Sentinel lines the worker must print before exiting.
const (
	PersonDetectedLine    = "Person detected."
	PersonNotDetectedLine = "Person not detected."
)

// Verdict is the interpreted result of a worker run.
type Verdict int

const (
	// NoPersonDetected means the worker reported no person in the image.
	NoPersonDetected Verdict = iota
	// PersonDetected means the worker reported at least one person.
	PersonDetected
)

// String returns the verdict label used in logs and metrics.
func (v Verdict) String() string {
	if v == PersonDetected {
		return "person"
	}

	return "no_person"
}

// ParseVerdict validates the captured worker lines and derives the verdict.
// The lines must be non-empty and contain one of the sentinel lines as a
// case-sensitive substring; a "Person detected." line anywhere wins.
func ParseVerdict(lines []string) (Verdict, error) {
	if len(lines) == 0 {
		return NoPersonDetected, security.NewError(
			security.KindProcess,
			nil,
			"The detection worker produced no output, valid process logs are - '%s', '%s'",
			PersonDetectedLine,
			PersonNotDetectedLine,
		)
	}

	var (
		verdict = NoPersonDetected
		valid   bool
	)

	for _, line := range lines {
		switch {
		case strings.Contains(line, PersonDetectedLine):
			verdict, valid = PersonDetected, true
		case strings.Contains(line, PersonNotDetectedLine):
			valid = true
		}
	}

	if !valid {
		return NoPersonDetected, security.NewError(
			security.KindProcess,
			nil,
			"The process logs are not listed as valid logs, valid process logs are - '%s', '%s'",
			PersonDetectedLine,
			PersonNotDetectedLine,
		)
	}

	return verdict, nil
}
