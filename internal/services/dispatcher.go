package services

import (
	"cadete-dispatch-service/internal/domain"
	"cadete-dispatch-service/internal/platform/obs"
	"cadete-dispatch-service/internal/ports"
	"context"
	"fmt"
	"log"
	"time"
)

// Dispatcher owns the trip lifecycle after a builder finalizes: it keeps the
// in-memory store authoritative and mirrors changes to the repository and
// the event publishers.
type Dispatcher struct {
	store   *TripStore
	repo    ports.TripRepository
	events  ports.TripEventPublisher
	metrics Metrics
	ids     *IDSource
	now     func() time.Time
}

type DispatcherDeps struct {
	Store   *TripStore
	Repo    ports.TripRepository
	Events  ports.TripEventPublisher
	Metrics Metrics
	IDs     *IDSource
	Now     func() time.Time
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IDs == nil {
		deps.IDs = &IDSource{}
	}
	return &Dispatcher{
		store:   deps.Store,
		repo:    deps.Repo,
		events:  deps.Events,
		metrics: metricsOrNop(deps.Metrics),
		ids:     deps.IDs,
		now:     deps.Now,
	}
}

func (d *Dispatcher) Store() *TripStore { return d.store }

// Commit makes trip active. The store rejects duplicates; a repository
// failure rolls the insert back.
func (d *Dispatcher) Commit(ctx context.Context, trip domain.Trip) (_ domain.Trip, err error) {
	defer obs.Time(ctx, "dispatcher.Commit")(&err)

	trip.Status = domain.TripStatusActive
	if err := d.store.AddActive(trip); err != nil {
		return domain.Trip{}, err
	}

	if d.repo != nil {
		if err := d.repo.Create(ctx, &trip); err != nil {
			d.store.Delete(trip.ID)
			return domain.Trip{}, fmt.Errorf("commit trip %d: %w", trip.ID, err)
		}
	}

	d.metrics.TripFinalized()
	d.refreshCounts()
	d.publish(ctx, domain.TripEventFinalized, &trip)

	return trip, nil
}

func (d *Dispatcher) Complete(ctx context.Context, id int64) (domain.Trip, error) {
	t, ok := d.store.Complete(id)
	if !ok {
		return domain.Trip{}, fmt.Errorf("complete trip %d: %w", id, domain.ErrTripNotFound)
	}

	if d.repo != nil {
		if err := d.repo.UpdateStatus(ctx, id, t.Status, t.CompletedAt); err != nil {
			log.Printf("persist trip completion failed trip=%d err=%v", id, err)
		}
	}

	d.metrics.TripCompleted()
	d.refreshCounts()
	d.publish(ctx, domain.TripEventCompleted, &t)

	return t, nil
}

func (d *Dispatcher) Delete(ctx context.Context, id int64) (domain.Trip, error) {
	t, ok := d.store.Delete(id)
	if !ok {
		return domain.Trip{}, fmt.Errorf("delete trip %d: %w", id, domain.ErrTripNotFound)
	}

	if d.repo != nil {
		if err := d.repo.Delete(ctx, id); err != nil {
			log.Printf("persist trip deletion failed trip=%d err=%v", id, err)
		}
	}

	d.metrics.TripDeleted()
	d.refreshCounts()
	d.publish(ctx, domain.TripEventDeleted, &t)

	return t, nil
}

// RemoveWaypoint handles a marker removal on an active trip. Active trips
// are not edited in place: removing any of their waypoints deletes the trip.
func (d *Dispatcher) RemoveWaypoint(ctx context.Context, tripID int64, waypointID int) (domain.Trip, error) {
	t, ok := d.store.Get(tripID)
	if !ok || t.Status != domain.TripStatusActive {
		return domain.Trip{}, fmt.Errorf("remove waypoint: trip %d: %w", tripID, domain.ErrTripNotFound)
	}
	if waypointID != t.Origin.ID && t.DestinationIndex(waypointID) < 0 {
		return domain.Trip{}, fmt.Errorf("remove waypoint %d of trip %d: %w", waypointID, tripID, domain.ErrWaypointNotFound)
	}
	return d.Delete(ctx, tripID)
}

func (d *Dispatcher) ResetHistoryIfNewDay(ctx context.Context) bool {
	if !d.store.ResetHistoryIfNewDay() {
		return false
	}

	log.Printf("history reset for new day")
	d.metrics.HistoryReset()
	d.refreshCounts()
	d.publish(ctx, domain.TripEventHistoryReset, nil)
	return true
}

// RunHistoryReset checks for a new day every interval until ctx is done.
func (d *Dispatcher) RunHistoryReset(ctx context.Context, interval time.Duration) {
	d.ResetHistoryIfNewDay(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.ResetHistoryIfNewDay(ctx)
		}
	}
}

// Restore loads today's trips from the repository into the store.
func (d *Dispatcher) Restore(ctx context.Context) (err error) {
	defer obs.Time(ctx, "dispatcher.Restore")(&err)

	if d.repo == nil {
		return nil
	}

	y, m, day := d.now().In(d.store.Location()).Date()
	since := time.Date(y, m, day, 0, 0, 0, 0, d.store.Location())

	trips, err := d.repo.ListSince(ctx, since)
	if err != nil {
		return fmt.Errorf("restore trips: %w", err)
	}

	var active, history []domain.Trip
	for _, t := range trips {
		d.ids.Observe(t.ID)
		switch t.Status {
		case domain.TripStatusActive:
			active = append(active, t)
		case domain.TripStatusCompleted:
			history = append(history, t)
		}
	}

	d.store.Restore(active, history)
	d.refreshCounts()
	log.Printf("restored trips active=%d history=%d", len(active), len(history))
	return nil
}

func (d *Dispatcher) refreshCounts() {
	d.metrics.SetTripCounts(d.store.Counts())
}

func (d *Dispatcher) publish(ctx context.Context, typ domain.TripEventType, t *domain.Trip) {
	if d.events == nil {
		return
	}
	if err := d.events.Publish(ctx, domain.NewTripEvent(typ, t, d.now())); err != nil {
		log.Printf("publish trip event failed type=%s err=%v", typ, err)
	}
}
