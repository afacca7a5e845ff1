package points

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker periodically reconciles materialized balances against the
// transaction log. The log is the source of truth; the worker repairs
// drift, it never creates entries.
type Worker struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
}

func NewWorker(svc *Service, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &Worker{
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting points reconcile worker...")
	go w.loop()
}

func (w *Worker) Stop() {
	log.Info().Msg("Stopping points reconcile worker...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.run()

	for {
		select {
		case <-ticker.C:
			w.run()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log.Debug().Msg("Starting points reconcile sweep...")

	fixed, err := w.svc.ReconcileAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Points reconcile sweep failed")
		return
	}
	if fixed > 0 {
		log.Warn().Int("repaired", fixed).Msg("Points reconcile repaired drifted balances")
	}

	log.Debug().Msg("Finished points reconcile sweep")
}
