package remoteregistry

import "errors"

// Sentinel errors for remote registry operations.
// Callers should use errors.Is to check.
var (
	// ErrFetchFailed indicates the Fetcher could not retrieve the record.
	ErrFetchFailed = errors.New("remoteregistry: fetch failed")
	// ErrHTTPStatus indicates an unexpected HTTP status (e.g. 500) when using HTTPFetcher.
	ErrHTTPStatus = errors.New("remoteregistry: unexpected HTTP status")
	// ErrNotFound indicates no record was found for the given name/tag; registry wraps it in promptsdk.ErrPromptNotFound.
	ErrNotFound = errors.New("remoteregistry: no record found")
)
