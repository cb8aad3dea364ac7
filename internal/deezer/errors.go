package deezer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes the service embeds in {error: {type, message, code}}
// bodies, frequently inside HTTP 200 responses.
const (
	CodeQuota        = 4
	CodePermission   = 200
	CodeTokenInvalid = 300
	CodeParameter    = 500
	CodeDataNotFound = 800
)

// Error is a structured service error parsed from a response body.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("deezer: %s (code %d): %s", e.Type, e.Code, e.Message)
}

// HTTPError is a non-2xx transport response without a structured error
// body.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("deezer: http status %d", e.StatusCode)
}

// rateLimited reports whether err is the service telling us to slow
// down: HTTP 403/429 or the quota error code.
func rateLimited(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusForbidden || httpErr.StatusCode == http.StatusTooManyRequests
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeQuota
}

// transient reports whether err is a retryable transport failure.
func transient(err error) bool {
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	switch httpErr.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// notFound reports whether err means the resource does not exist: HTTP
// 404 or the service's data-not-found code (deleted playlists included).
func notFound(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusNotFound
	}
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeDataNotFound
}

// duplicateTrack reports the benign "song already exists in this
// playlist" rejection.
func duplicateTrack(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Code == CodeParameter &&
		strings.Contains(apiErr.Message, "already exists in this playlist")
}
