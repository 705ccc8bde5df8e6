package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// CreateLogRequest is the payload for recording a new log entry. ID and
// CreatedAt are assigned by the repository before the first send: the id
// makes outbox replays idempotent server-side, and the timestamp keeps
// the entry's event time when a queued replay lands days later.
type CreateLogRequest struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type" validate:"required,oneof=workout meal sleep water note"`
	Fields    map[string]any `json:"fields,omitempty"`
	Note      string         `json:"note,omitempty" validate:"max=2000"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// Validate checks the request against its field constraints.
func (r CreateLogRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid log request: %w", err)
	}
	return nil
}

// UpdateProfileRequest carries the profile fields the user may edit.
type UpdateProfileRequest struct {
	DisplayName     string `json:"display_name" validate:"required,max=120"`
	DailyStepGoal   int    `json:"daily_step_goal" validate:"gte=0,lte=200000"`
	DailyActiveGoal int    `json:"daily_active_goal" validate:"gte=0,lte=1440"`
	Units           string `json:"units" validate:"oneof=metric imperial"`
}

// Validate checks the request against its field constraints.
func (r UpdateProfileRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid profile request: %w", err)
	}
	return nil
}

// GenerateVisualizationRequest asks the backend to build a new chart
// from a natural-language prompt. ID doubles as the idempotency key on
// replay, same as CreateLogRequest.
type GenerateVisualizationRequest struct {
	ID     string `json:"id,omitempty"`
	Prompt string `json:"prompt" validate:"required,max=500"`
}

// Validate checks the request against its field constraints.
func (r GenerateVisualizationRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid visualization request: %w", err)
	}
	return nil
}

// SampleBatch is the wire form of a health-sample upload.
type SampleBatch struct {
	DeviceID string   `json:"device_id,omitempty"`
	Samples  []Sample `json:"samples" validate:"required,min=1,dive"`
}

// Validate checks the batch and every sample in it.
func (b SampleBatch) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("invalid sample batch: %w", err)
	}
	return nil
}
