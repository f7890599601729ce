package ccdavalidator

import (
	"fmt"
	"strings"
)

// SeverityLevel is the minimum severity a finding must have to be reported.
// Levels are ordered: INFO < WARNING < ERROR.
type SeverityLevel int

const (
	// SeverityInfo reports everything.
	SeverityInfo SeverityLevel = iota
	// SeverityWarning reports warnings and errors.
	SeverityWarning
	// SeverityError reports errors only.
	SeverityError
)

// DefaultSeverityLevel is used when a request does not set a floor.
const DefaultSeverityLevel = SeverityInfo

// String returns the level name as reported in result metadata.
func (s SeverityLevel) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return fmt.Sprintf("SeverityLevel(%d)", int(s))
	}
}

// IsValid returns true if s is one of the defined levels.
func (s SeverityLevel) IsValid() bool {
	return s >= SeverityInfo && s <= SeverityError
}

// Includes reports whether a finding at level is at or above the floor s.
func (s SeverityLevel) Includes(level SeverityLevel) bool {
	return level >= s
}

// ParseSeverityLevel parses a level name, ignoring case. An empty string
// yields DefaultSeverityLevel.
func ParseSeverityLevel(name string) (SeverityLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return DefaultSeverityLevel, nil
	case "INFO":
		return SeverityInfo, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	default:
		return DefaultSeverityLevel, fmt.Errorf("unknown severity level %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SeverityLevel) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SeverityLevel) UnmarshalText(text []byte) error {
	level, err := ParseSeverityLevel(string(text))
	if err != nil {
		return err
	}
	*s = level
	return nil
}
