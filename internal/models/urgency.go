package models

import "fmt"

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
	UrgencyUrgent Urgency = "urgent"
)

func ParseUrgency(s string) (Urgency, error) {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent:
		return Urgency(s), nil
	}
	return "", fmt.Errorf("unknown task urgency: %q", s)
}

func (u Urgency) Valid() bool {
	_, err := ParseUrgency(string(u))
	return err == nil
}
