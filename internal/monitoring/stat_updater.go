// Package monitoring carries the background marketplace telemetry: a
// periodic stats updater feeding the live feed and the /status endpoint,
// and a cron-scheduled summary reporter.
package monitoring

import (
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/openwheels/openwheels-be/internal/websocket"
)

// Snapshot is one observation of marketplace and host state.
type Snapshot struct {
	Vehicles       int       `json:"vehicles"`
	Users          int       `json:"users"`
	Images         int       `json:"images"`
	MinPrice       float64   `json:"minPrice"`
	AvgPrice       float64   `json:"avgPrice"`
	MaxPrice       float64   `json:"maxPrice"`
	HostCPUPercent float64   `json:"hostCpuPercent"`
	HostMemPercent float64   `json:"hostMemPercent"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// StatUpdater periodically computes marketplace stats and pushes them to the
// live feed.
type StatUpdater struct {
	db     *sql.DB
	hub    *websocket.Hub
	ticker *time.Ticker
	done   chan bool

	mu   sync.RWMutex
	last Snapshot
}

// NewStatUpdater creates a new StatUpdater.
func NewStatUpdater(db *sql.DB, hub *websocket.Hub) *StatUpdater {
	return &StatUpdater{
		db:   db,
		hub:  hub,
		done: make(chan bool),
	}
}

// Run starts the periodic updates.
func (su *StatUpdater) Run() {
	log.Info().Msg("Starting background stat updater...")
	su.ticker = time.NewTicker(30 * time.Second)
	defer su.ticker.Stop()

	// Run once immediately on start
	su.update()

	for {
		select {
		case <-su.done:
			log.Info().Msg("Stopping background stat updater.")
			return
		case <-su.ticker.C:
			su.update()
		}
	}
}

// Stop halts the periodic updates.
func (su *StatUpdater) Stop() {
	su.done <- true
}

// Current returns the most recent snapshot.
func (su *StatUpdater) Current() Snapshot {
	su.mu.RLock()
	defer su.mu.RUnlock()
	return su.last
}

func (su *StatUpdater) update() {
	snap, err := Collect(su.db)
	if err != nil {
		log.Error().Err(err).Msg("StatUpdater: Failed to collect marketplace stats")
		return
	}

	su.mu.Lock()
	su.last = snap
	su.mu.Unlock()

	if su.hub != nil {
		su.hub.BroadcastMessage("stats", snap)
	}
}

// Collect computes a snapshot of marketplace counts, price aggregates, and
// host load.
func Collect(db *sql.DB) (Snapshot, error) {
	snap := Snapshot{GeneratedAt: time.Now().UTC()}

	row := db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM vehicles),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM vehicle_images),
			COALESCE((SELECT MIN(price) FROM vehicles), 0),
			COALESCE((SELECT AVG(price) FROM vehicles), 0),
			COALESCE((SELECT MAX(price) FROM vehicles), 0)`)
	if err := row.Scan(&snap.Vehicles, &snap.Users, &snap.Images, &snap.MinPrice, &snap.AvgPrice, &snap.MaxPrice); err != nil {
		return Snapshot{}, err
	}

	// Host load is best-effort; a collection failure leaves the zero value.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.HostCPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.HostMemPercent = vm.UsedPercent
	}

	return snap, nil
}
