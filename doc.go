// Package promptsdk converts stored, provider-agnostic prompt records into the
// request parameters of a concrete LLM provider SDK. It holds the prompt data
// model, the template formatter (mustache and f-string placeholders) and the
// shared error taxonomy; provider mappings live in adapter subpackages.
package promptsdk
