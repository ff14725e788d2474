// Package trigger describes what should fire and when.
//
// A Trigger is an immutable value with a kind discriminator and exactly one
// kind-specific payload:
//   - Interval: fires on activation, then every Every×Unit forever.
//   - Range: fires once a day at a wall-clock time picked at random inside the
//     first 90% of a [start, end) window. The time is picked once, at construction.
//
// Definitions is the already-decoded configuration batch; Build turns it into
// valid triggers and drops (and logs) everything else.
package trigger
