// Package git provides a remoteregistry.Fetcher backed by a Git repository.
// Records are read from the working tree of a shallow clone that is refreshed with a pull on each fetch.
package git
