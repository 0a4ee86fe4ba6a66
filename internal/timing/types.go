package timing

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const timingTimestampLayout = "2006-01-02 15:04:05"

// HealthResponse mirrors the payload returned by /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// OK reports whether the service described itself as healthy.
func (h HealthResponse) OK() bool {
	switch strings.ToLower(strings.TrimSpace(h.Status)) {
	case "ok", "healthy", "up", "pass":
		return true
	}
	return false
}

// ProbeResponse is the loose shape the tester expects from any endpoint.
// Every field is optional.
type ProbeResponse struct {
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Status  string          `json:"status,omitempty"`
}

// SummarizeProbe extracts a ProbeResponse from an arbitrary JSON payload.
// Non-object payloads are returned whole as Data; non-string message and
// status values are rendered with their JSON text.
func SummarizeProbe(raw json.RawMessage) ProbeResponse {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return ProbeResponse{Data: raw}
	}
	return ProbeResponse{
		Message: scalarText(fields["message"]),
		Status:  scalarText(fields["status"]),
		Data:    fields["data"],
	}
}

func scalarText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ClassificationTable mirrors /classification.
type ClassificationTable struct {
	Data ClassificationData `json:"data"`
}

// ClassificationData holds the standings list and its advertised size.
type ClassificationData struct {
	Count     int        `json:"count"`
	Standings []Standing `json:"standings"`
}

// Leader returns the first standing, if any.
func (c ClassificationTable) Leader() (Standing, bool) {
	if len(c.Data.Standings) == 0 {
		return Standing{}, false
	}
	return c.Data.Standings[0], true
}

// FinishedCount returns how many competitors have finished.
func (c ClassificationTable) FinishedCount() int {
	n := 0
	for _, s := range c.Data.Standings {
		if s.Finished {
			n++
		}
	}
	return n
}

// Standing is one row of the classification.
type Standing struct {
	TagID        string  `json:"tag_id"`
	Laps         int     `json:"laps"`
	LastPassTime string  `json:"last_pass_time"`
	FinishTime   *string `json:"finish_time"`
	Finished     bool    `json:"finished"`
	TotalTimeMS  int64   `json:"total_time_ms"`
	GapMS        int64   `json:"gap_ms"`
	LapsBehind   int     `json:"laps_behind"`
}

// TotalTime returns the elapsed race time.
func (s Standing) TotalTime() time.Duration {
	return time.Duration(s.TotalTimeMS) * time.Millisecond
}

// Gap returns the time gap to the leader.
func (s Standing) Gap() time.Duration {
	return time.Duration(s.GapMS) * time.Millisecond
}

// ParsedLastPass returns the last passing time, or the zero time when it
// cannot be parsed.
func (s Standing) ParsedLastPass() time.Time {
	return parseTime(s.LastPassTime)
}

// ParsedFinishTime returns the finish time, or the zero time when the
// competitor has not finished.
func (s Standing) ParsedFinishTime() time.Time {
	if s.FinishTime == nil {
		return time.Time{}
	}
	return parseTime(*s.FinishTime)
}

// GapLabel renders the gap the way timing screens show it: "Leader",
// "+N lap(s)" or "+m:ss.mmm".
func (s Standing) GapLabel() string {
	if s.LapsBehind > 0 {
		if s.LapsBehind == 1 {
			return "+1 lap"
		}
		return fmt.Sprintf("+%d laps", s.LapsBehind)
	}
	if s.GapMS <= 0 {
		return "Leader"
	}
	return "+" + FormatRaceTime(s.Gap())
}

// FormatRaceTime renders d as h:mm:ss.mmm, dropping the hour when zero.
func FormatRaceTime(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	sec := (ms / 1000) % 60
	frac := ms % 1000
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%03d", h, m, sec, frac)
	}
	return fmt.Sprintf("%d:%02d.%03d", m, sec, frac)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(timingTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
