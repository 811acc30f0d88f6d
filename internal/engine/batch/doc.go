// Package batch runs bulk imports against a remote API with bounded concurrency.
//
// Items are split into consecutive rounds of at most Concurrency items. All calls of a
// round run concurrently and the next round only starts once every call of the current
// round has settled, so no more than Concurrency requests are ever in flight. Each call
// is wrapped in a retry loop with linear backoff. Per-item failures never abort a run:
// they are captured into the Result, which lists successes and failures in input order.
//
// Progress is reported through a callback after every round, which keeps the engine
// independent of any presentation layer.
package batch
