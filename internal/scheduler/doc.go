// Package scheduler fires named jobs on cron triggers and records their
// statistics.
//
// Each job moves Idle -> Running -> Completed|Failed and may run again once it
// leaves Running. A run requested while the job is Running is rejected with
// ErrJobRunning; it is never queued. Runs are detached from the caller's
// cancellation so shutdown waits for them instead of interrupting them.
package scheduler
