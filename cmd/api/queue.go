package main

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/hostbay/backend/internal/billing"
	"github.com/hostbay/backend/internal/console"
	"github.com/hostbay/backend/internal/workers"
)

// newRiverClient assembles the job queue: reboot and finalization workers
// plus the hourly pending-order sweep. The "long" queue keeps multi-minute
// console sessions from starving the default workers.
func newRiverClient(pool *pgxpool.Pool, billingSvc billing.Service, consoleSvc console.Service, logger *slog.Logger) (*river.Client[pgx.Tx], error) {
	registry := river.NewWorkers()
	river.AddWorker(registry, workers.NewRebootWorker(consoleSvc))
	river.AddWorker(registry, workers.NewSweepWorker(billingSvc, logger))
	river.AddWorker(registry, workers.NewFinalizeWorker(billingSvc))

	periodic := []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(time.Hour),
			func() (river.JobArgs, *river.InsertOpts) {
				return workers.PendingSweepArgs{Hours: workers.DefaultSweepHours}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}

	return river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			workers.QueueLong:  {MaxWorkers: 2},
		},
		Workers:      registry,
		PeriodicJobs: periodic,
	})
}
