package weather

import "testing"

func TestSortAlertsBySeverityThenUrgency(t *testing.T) {
	alerts := []Alert{
		{ID: "minor-immediate", Severity: SeverityMinor, Urgency: UrgencyImmediate},
		{ID: "severe-future", Severity: SeveritySevere, Urgency: UrgencyFuture},
		{ID: "unknown", Severity: SeverityUnknown, Urgency: UrgencyUnknown},
		{ID: "severe-immediate", Severity: SeveritySevere, Urgency: UrgencyImmediate},
		{ID: "extreme-expected", Severity: SeverityExtreme, Urgency: UrgencyExpected},
	}

	SortAlerts(alerts)

	want := []string{"extreme-expected", "severe-immediate", "severe-future", "minor-immediate", "unknown"}
	for i, id := range want {
		if alerts[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, alerts[i].ID, id)
		}
	}
}

func TestParseSeverityAndUrgency(t *testing.T) {
	if got := ParseSeverity(" Extreme "); got != SeverityExtreme {
		t.Errorf("ParseSeverity = %s", got)
	}
	if got := ParseSeverity("catastrophic"); got != SeverityUnknown {
		t.Errorf("unknown label should map to unknown, got %s", got)
	}
	if got := ParseUrgency("Immediate"); got != UrgencyImmediate {
		t.Errorf("ParseUrgency = %s", got)
	}
	if got := ParseUrgency(""); got != UrgencyUnknown {
		t.Errorf("empty label should map to unknown, got %s", got)
	}
}
