// Package store persists the state that outlives a reconciliation run.
//
// Two stores live here:
//
// [Env] keeps per-profile credentials in a dotenv file: a NAMES key
// holding the enrolled profile names as a JSON array, plus
// API_TOKEN_<NAME> and PLAYLIST_ID_<NAME> entries per profile. Real
// environment variables take precedence over file entries, so secrets
// injected by CI work without a file on disk.
//
// [History] is the run ledger: one SQLite row per completed
// reconciliation run, queryable newest-first for the history command.
package store
