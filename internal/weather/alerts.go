package weather

import (
	"sort"
	"strings"
)

// AlertSeverity orders alerts from most to least severe.
type AlertSeverity string

const (
	SeverityExtreme  AlertSeverity = "extreme"
	SeveritySevere   AlertSeverity = "severe"
	SeverityModerate AlertSeverity = "moderate"
	SeverityMinor    AlertSeverity = "minor"
	SeverityUnknown  AlertSeverity = "unknown"
)

// AlertUrgency orders alerts by how soon action is needed.
type AlertUrgency string

const (
	UrgencyImmediate AlertUrgency = "immediate"
	UrgencyExpected  AlertUrgency = "expected"
	UrgencyFuture    AlertUrgency = "future"
	UrgencyPast      AlertUrgency = "past"
	UrgencyUnknown   AlertUrgency = "unknown"
)

var severityRank = map[AlertSeverity]int{
	SeverityExtreme:  0,
	SeveritySevere:   1,
	SeverityModerate: 2,
	SeverityMinor:    3,
	SeverityUnknown:  4,
}

var urgencyRank = map[AlertUrgency]int{
	UrgencyImmediate: 0,
	UrgencyExpected:  1,
	UrgencyFuture:    2,
	UrgencyPast:      3,
	UrgencyUnknown:   4,
}

// ParseSeverity maps a free-form severity label, defaulting to unknown.
func ParseSeverity(s string) AlertSeverity {
	sev := AlertSeverity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := severityRank[sev]; ok {
		return sev
	}
	return SeverityUnknown
}

// ParseUrgency maps a free-form urgency label, defaulting to unknown.
func ParseUrgency(s string) AlertUrgency {
	u := AlertUrgency(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := urgencyRank[u]; ok {
		return u
	}
	return UrgencyUnknown
}

// Alert is a severe-weather alert for a point.
type Alert struct {
	ID              string        `json:"id"`
	Event           string        `json:"event"`
	Headline        string        `json:"headline"`
	Description     string        `json:"description"`
	Instruction     string        `json:"instruction,omitempty"`
	Severity        AlertSeverity `json:"severity"`
	Urgency         AlertUrgency  `json:"urgency"`
	Certainty       string        `json:"certainty"`
	SenderName      string        `json:"senderName"`
	AreaDescription string        `json:"areaDescription"`
	Effective       string        `json:"effective,omitempty"`
	Expires         string        `json:"expires,omitempty"`
	Response        string        `json:"response,omitempty"`
}

// IsSevere reports whether the alert is severe or extreme.
func (a Alert) IsSevere() bool {
	return a.Severity == SeverityExtreme || a.Severity == SeveritySevere
}

// SortAlerts orders alerts by severity, then urgency. The sort is stable so
// equal alerts keep their source order.
func SortAlerts(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		si, sj := severityRank[alerts[i].Severity], severityRank[alerts[j].Severity]
		if si != sj {
			return si < sj
		}
		return urgencyRank[alerts[i].Urgency] < urgencyRank[alerts[j].Urgency]
	})
}
