package monitoring

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/openwheels/openwheels-be/internal/services"
)

// Reporter records a marketplace summary event on a cron schedule.
type Reporter struct {
	db       *sql.DB
	eventSvc services.EventServiceProvider
	schedule cron.Schedule
	done     chan bool
}

// NewReporter creates a Reporter for the given cron expression.
func NewReporter(db *sql.DB, eventSvc services.EventServiceProvider, cronExpr string) (*Reporter, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid report cron expression %q: %w", cronExpr, err)
	}
	return &Reporter{
		db:       db,
		eventSvc: eventSvc,
		schedule: schedule,
		done:     make(chan bool),
	}, nil
}

// Run sleeps until each scheduled tick and records the summary.
func (r *Reporter) Run() {
	log.Info().Msg("Starting marketplace report scheduler...")
	for {
		next := r.schedule.Next(time.Now())
		select {
		case <-r.done:
			log.Info().Msg("Stopping marketplace report scheduler.")
			return
		case <-time.After(time.Until(next)):
			r.report()
		}
	}
}

// Stop halts the scheduler.
func (r *Reporter) Stop() {
	r.done <- true
}

func (r *Reporter) report() {
	snap, err := Collect(r.db)
	if err != nil {
		log.Error().Err(err).Msg("Reporter: Failed to collect marketplace stats")
		return
	}

	msg := fmt.Sprintf(
		"Marketplace summary: %d vehicles listed by %d users (%d images), prices %.2f-%.2f (avg %.2f).",
		snap.Vehicles, snap.Users, snap.Images, snap.MinPrice, snap.MaxPrice, snap.AvgPrice,
	)
	r.eventSvc.Record("report.summary", "info", msg, nil)
}
