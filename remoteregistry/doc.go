// Package remoteregistry provides a remote prompt registry that loads YAML or JSON records
// via a Fetcher (HTTP or Git). It caches records with a configurable TTL, de-duplicates
// concurrent fetches of the same key, and supports Bearer token authentication.
// Use New with an implementation of Fetcher (e.g. NewHTTPFetcher);
// GetPrompt returns a cloned record by name and tag.
package remoteregistry
