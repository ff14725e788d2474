// Package schedule runs triggers on their recurrence.
//
// An Engine owns an in-memory job table keyed by (trigger id, group) and a
// single worker goroutine that fires due jobs one at a time through a Firer.
// Engines share nothing; a stopped engine cannot be started again.
//
// Recurrence rules implement cron.Schedule from robfig/cron so they read like
// any other cron schedule, but they are computed here: interval triggers need
// sub-second periods and range triggers fire at a fixed daily time.
package schedule
