// Package deezer wraps the Deezer Web API surface the reconciler
// consumes.
//
// [Client] covers the handful of endpoints a refresh run touches:
// identity, followed artists, artist albums, album tracks, listening
// history, playlist lookup/search/create, and the two track mutations.
// List endpoints return [Page] values mirroring the service's
// {data, total, next} envelope; callers follow Next verbatim.
//
// The service reports failures two ways, and the package keeps them
// distinct: [Error] is the structured {error: {type, message, code}}
// body the API embeds even inside HTTP 200 responses, while [HTTPError]
// is a bare non-2xx status. [Client.call] probes every body for the
// former before decoding.
//
// [Do] is the execution discipline around those calls: every request
// takes a slot from the rate-limit [Gate], rate-limited and transient
// failures retry on a fixed backoff, and expected absences (deleted
// resources, benign duplicates, exhausted retries) collapse into a
// comma-ok false so callers can treat them as "nothing to do".
//
// [OAuth] implements the enrollment handshake against
// connect.deezer.com: building the authorization URL and exchanging the
// callback code for a permanent access token.
package deezer
