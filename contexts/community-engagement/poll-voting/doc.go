// Package pollvoting implements the poll voting engine inside the
// community-engagement context.
//
// The module owns the vote ledger (one vote per user per poll), the per-poll
// aggregate counters and the coordinator that applies first votes and vote
// changes to both in a single atomic scope. Aggregate reads (counters and
// display percentages) are served straight from the poll row. State changes
// are recorded in an outbox that the worker relays to the event bus.
package pollvoting
