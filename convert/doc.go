// Package convert dispatches a prompt version to the provider adapter named by
// its model provider (or an explicit provider name) and returns the
// provider's parameter object as an untyped value.
//
// Callers that know the provider at compile time should use the adapter
// packages directly (openai.ToOpenAI, anthropic.ToAnthropic, ...) and keep
// the concrete type.
package convert
