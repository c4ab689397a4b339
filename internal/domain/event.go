package domain

import "time"

type TripEventType string

const (
	TripEventFinalized    TripEventType = "finalized"
	TripEventCompleted    TripEventType = "completed"
	TripEventDeleted      TripEventType = "deleted"
	TripEventHistoryReset TripEventType = "history_reset"
)

// TripEvent is emitted whenever the set of active or completed trips changes.
type TripEvent struct {
	Type       TripEventType `json:"type"`
	TripID     int64         `json:"tripId,omitempty"`
	Color      string        `json:"color,omitempty"`
	DistanceKm float64       `json:"distanceKm,omitempty"`
	Price      float64       `json:"price,omitempty"`
	At         time.Time     `json:"at"`
}

func NewTripEvent(typ TripEventType, t *Trip, at time.Time) TripEvent {
	ev := TripEvent{Type: typ, At: at}
	if t != nil {
		ev.TripID = t.ID
		ev.Color = t.Color
		ev.DistanceKm = t.TotalDistanceKm()
		ev.Price = t.Price
	}
	return ev
}
