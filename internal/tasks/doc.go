// Package tasks orchestrates the playlist refresh run with real-time progress reporting.
//
// # Core Operation
//
// [RefreshEngine.Run] reconciles one profile's playlist against the
// profile's Deezer account:
//
//  1. Resolves the target playlist (verify stored id → search → create)
//  2. Fetches fresh track ids from followed artists, the recent
//     listening history, and the playlist's current contents
//  3. Computes the reconciliation sets and applies them in chunked
//     mutation calls
//
// Every service call goes through [deezer.Do], so rate limiting,
// retries, and absence absorption stay uniform across the run. Fetchers
// treat an absorbed failure as end-of-data and return what they
// accumulated; only fatal errors abort the run.
//
// # Progress Reporting
//
// All operations use non-blocking channel sends for progress updates.
//
// The [ProgressUpdate] struct carries a phase, step counters, and a
// printable message. Updates use select with default so a slow or
// absent consumer never stalls the run.
package tasks
