// Package server hosts the short-lived local HTTP listener that
// captures the OAuth redirect during enrollment.
//
// [BasicRouter] is a thin wrapper over [http.ServeMux] with per-method
// filtering; handlers implement the [Handler] interface so they can
// declare the routes they serve.
//
// [CallbackHandler] processes the authorization redirect exactly once:
// it validates the echoed state when present, trades the code for an
// access token through an [Exchanger], and delivers the outcome over a
// one-shot channel. The enroll command starts the server, waits on that
// channel with a timeout, and shuts the listener down.
package server
