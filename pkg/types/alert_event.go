package types

import (
	"fmt"
	"time"
)

type AlertPriority string

const (
	PriorityLow    AlertPriority = "low"
	PriorityMedium AlertPriority = "medium"
	PriorityHigh   AlertPriority = "high"
)

func ParseAlertPriority(s string) (AlertPriority, error) {
	switch AlertPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return AlertPriority(s), nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("unknown alert priority %q", s)
	}
}

type AlertEvent struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Priority  AlertPriority  `json:"priority"`
	Data      map[string]any `json:"data,omitempty"`
}
