// Package ollama converts prompt versions into Ollama Chat API requests (*api.ChatRequest).
//
// Images must be inline data: URIs; remote URLs are rejected since Ollama takes raw bytes.
// Invocation parameters become request Options, with max_tokens renamed to num_predict.
// The API has no tool choice: "none" removes tools, the other directives keep the provider default.
// A response format is sent as the raw JSON Schema in Format.
package ollama
