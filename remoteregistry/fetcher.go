package remoteregistry

import (
	"context"

	"github.com/skosovsky/promptsdk"
)

// Fetcher fetches raw record bytes (YAML or JSON) by prompt name and tag.
// Registry uses it to obtain record content; HTTP and Git are typical implementations.
//
// Return ErrNotFound when the record does not exist; Registry translates it to promptsdk.ErrPromptNotFound.
// Wrap other errors in ErrFetchFailed so callers can use errors.Is.
type Fetcher interface {
	Fetch(ctx context.Context, name, tag string) ([]byte, error)
}

// Lister is optional. When implemented by Fetcher, Registry.List uses it to return available names.
type Lister interface {
	ListNames(ctx context.Context) ([]string, error)
}

// ValidateName checks that name and tag are safe for use in paths, URLs and cache keys.
// Delegates to promptsdk.ValidateName so all registries share the same rules.
func ValidateName(name, tag string) error {
	return promptsdk.ValidateName(name, tag)
}

// CandidatePaths returns record filename candidates in resolution order:
// name.tag.yaml, name.tag.yml, name.tag.json, then the same without the tag.
// Call ValidateName before using the result with filesystem paths.
func CandidatePaths(name, tag string) []string {
	exts := []string{".yaml", ".yml", ".json"}
	out := make([]string, 0, 2*len(exts))
	if tag != "" {
		for _, ext := range exts {
			out = append(out, name+"."+tag+ext)
		}
	}
	for _, ext := range exts {
		out = append(out, name+ext)
	}
	return out
}
