// Package model defines the domain entities the Stride client caches on
// device and the request payloads it sends to the backend.
package model

import "time"

// ===== Entity names =====

// Entity names key the cached collections in the durable store. They are
// storage-internal and not a compatibility surface.
const (
	EntityProfile       = "profile"
	EntityLog           = "log"
	EntityStatSnapshot  = "stat_snapshot"
	EntityVisualization = "visualization"
)

// ===== Log entry types =====

const (
	LogWorkout = "workout"
	LogMeal    = "meal"
	LogSleep   = "sleep"
	LogWater   = "water"
	LogNote    = "note"
)

// ===== Sample types =====

const (
	SampleSteps         = "steps"
	SampleHeartRate     = "heart_rate"
	SampleDistance      = "distance"
	SampleActiveEnergy  = "active_energy"
	SampleSleepInterval = "sleep_interval"
)

// Profile is the signed-in user's account aggregate. The server owns it;
// the device caches the last fetched copy and sends edits as mutations.
type Profile struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"display_name"`
	Email           string    `json:"email"`
	DailyStepGoal   int       `json:"daily_step_goal"`
	DailyActiveGoal int       `json:"daily_active_goal"`
	Units           string    `json:"units"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// LogEntry is one user-recorded event. Fields is free-form: each entry
// type carries its own shape (distance and duration for a workout,
// calories for a meal) and the device never interprets it.
type LogEntry struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Fields    map[string]any `json:"fields,omitempty"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// StatSnapshot is a server-computed rollup of activity metrics over one
// period, cached for offline dashboards.
type StatSnapshot struct {
	ID          string             `json:"id"`
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
	Totals      map[string]float64 `json:"totals"`
	ComputedAt  time.Time          `json:"computed_at"`
}

// Visualization is the metadata of a chart the backend generated from
// the user's history. Spec is the renderer input and stays opaque here.
type Visualization struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Title     string         `json:"title"`
	Spec      map[string]any `json:"spec,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Sample is one health measurement from the platform's sensor bridge.
// Samples are not cached locally; they reach the server through the
// outbox only.
type Sample struct {
	Type  string    `json:"type" validate:"required"`
	Value float64   `json:"value"`
	Unit  string    `json:"unit" validate:"required"`
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}
