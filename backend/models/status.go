package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AttemptStatus is the lifecycle state of a TestAttempt. The zero value is
// StatusNotStarted; the set of states is closed and ParseAttemptStatus rejects
// anything else.
type AttemptStatus uint8

const (
	StatusNotStarted AttemptStatus = iota
	StatusInProgress
	StatusCompleted
	StatusAbandoned
)

var statusNames = [...]string{
	StatusNotStarted: "not_started",
	StatusInProgress: "in_progress",
	StatusCompleted:  "completed",
	StatusAbandoned:  "abandoned",
}

func ParseAttemptStatus(s string) (AttemptStatus, error) {
	for i, name := range statusNames {
		if name == s {
			return AttemptStatus(i), nil
		}
	}
	return StatusNotStarted, fmt.Errorf("unknown attempt status %q", s)
}

func (s AttemptStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("AttemptStatus(%d)", uint8(s))
}

// Terminal reports whether no further transition is possible.
func (s AttemptStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Resolved attempts count towards the attempt number of the next one.
func (s AttemptStatus) Resolved() bool {
	return s.Terminal()
}

// GormDataType keeps the column textual on every dialect.
func (AttemptStatus) GormDataType() string {
	return "string"
}

func (s AttemptStatus) Value() (driver.Value, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("invalid attempt status %d", uint8(s))
	}
	return s.String(), nil
}

func (s *AttemptStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into AttemptStatus", src)
	}
	parsed, err := ParseAttemptStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s AttemptStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *AttemptStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAttemptStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
