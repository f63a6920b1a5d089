package weather

import (
	"math"
	"testing"
	"time"
)

func TestNewSnapshotDropsPastEntries(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 30, 0, 0, time.UTC)
	f := Forecast{
		Hourly: []HourlyConditions{
			{Time: now.Add(-3 * time.Hour)},
			{Time: now.Add(-61 * time.Minute)},
			{Time: now.Add(-time.Hour)},
			{Time: now.Add(-30 * time.Minute)},
			{Time: now.Add(time.Hour)},
		},
		Daily: []DailyConditions{
			{Date: time.Date(2026, 10, 13, 0, 0, 0, 0, time.UTC)},
			{Date: time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)},
			{Date: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
			{Date: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
		},
	}

	snap := NewSnapshot(f, LocationInfo{Name: "Denver"}, now)

	if len(snap.Hourly) != 3 {
		t.Fatalf("hourly = %d entries, want 3", len(snap.Hourly))
	}
	if !snap.Hourly[0].Time.Equal(now.Add(-time.Hour)) {
		t.Fatalf("first kept hour = %s", snap.Hourly[0].Time)
	}
	if len(snap.Daily) != 2 {
		t.Fatalf("daily = %d entries, want 2", len(snap.Daily))
	}
	if snap.Daily[0].Date.Day() != 15 {
		t.Fatalf("first kept day = %s", snap.Daily[0].Date)
	}
	if !snap.FetchedAt.Equal(now) || snap.Location.Name != "Denver" {
		t.Fatalf("unexpected snapshot header: %+v", snap.Location)
	}
}

func TestCoordinatesValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Coordinates
		wantErr bool
	}{
		{name: "valid", c: Coordinates{Latitude: 39.7, Longitude: -104.9}},
		{name: "poles and antimeridian", c: Coordinates{Latitude: -90, Longitude: 180}},
		{name: "latitude too high", c: Coordinates{Latitude: 90.01}, wantErr: true},
		{name: "longitude too low", c: Coordinates{Longitude: -180.5}, wantErr: true},
		{name: "NaN", c: Coordinates{Latitude: math.NaN()}, wantErr: true},
		{name: "infinite", c: Coordinates{Longitude: math.Inf(1)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.c.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
