package services

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/models"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(eventType, level, message string, vehicleID *string) error
	Record(eventType, level, message string, vehicleID *string)
	GetRecentEvents(limit int) ([]models.Event, error)
}

// EventBroadcaster pushes a recorded event to live listeners, globally and
// to the watchers of one listing. The websocket hub implements it.
type EventBroadcaster interface {
	BroadcastMessage(action string, payload any)
	BroadcastVehicle(vehicleID, action string, payload any)
}

// EventService records marketplace activity and feeds the live event stream.
type EventService struct {
	db  *sql.DB
	hub EventBroadcaster // may be nil when no live feed is attached
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB, hub EventBroadcaster) *EventService {
	return &EventService{db: db, hub: hub}
}

// CreateEvent logs a new event to the database and broadcasts it.
func (s *EventService) CreateEvent(eventType, level, message string, vehicleID *string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Level:     level,
		Message:   message,
		VehicleID: vehicleID,
	}

	stmt, err := s.db.Prepare("INSERT INTO events (id, type, level, message, vehicle_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	if _, err = stmt.Exec(event.ID, event.Type, event.Level, event.Message, event.VehicleID); err != nil {
		return err
	}

	if s.hub != nil {
		s.hub.BroadcastMessage("event", event)
		if event.VehicleID != nil {
			s.hub.BroadcastVehicle(*event.VehicleID, "event", event)
		}
	}
	return nil
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(limit int) ([]models.Event, error) {
	rows, err := s.db.Query("SELECT id, type, level, message, vehicle_id, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.VehicleID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Record is CreateEvent with failures logged instead of returned, for call
// sites where event logging must never fail the request.
func (s *EventService) Record(eventType, level, message string, vehicleID *string) {
	if err := s.CreateEvent(eventType, level, message, vehicleID); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}
