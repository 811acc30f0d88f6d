// Package journal remembers which rows an import has already created remotely.
//
// A re-run of a partially failed import would otherwise resubmit every row, including
// the ones that succeeded the first time. The journal stores one JSON file per entity
// under the journal directory (default ~/.bulkport/journal/), keyed by a SHA256 hash of
// the row's canonical JSON. Entries expire after a configurable TTL (default 7 days)
// and files are replaced atomically through a temp file and rename.
//
// Filtering is the caller's job: the batch engine itself stays stateless.
package journal
