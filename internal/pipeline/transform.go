package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// EventTransformer serializes prediction records into event-topic messages.
type EventTransformer struct{}

// NewTransformer creates an EventTransformer.
func NewTransformer() *EventTransformer {
	return &EventTransformer{}
}

func (t *EventTransformer) Transform(rec domain.PredictionRecord) (domain.OutputEvent, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("serialize prediction %s: %w", rec.ID, err)
	}
	return domain.OutputEvent{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: map[string]string{
			"damage_level": rec.Level.String(),
			"source":       string(rec.Source),
			"mine":         rec.Parameters.SelectedMine,
			"created_at":   rec.CreatedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
