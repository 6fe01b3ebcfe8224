// Package adapter holds the provider-neutral stages every provider converter is built from:
// message, tool, tool choice and response format mapping, parameter assembly, and the
// fail-closed SafeConvert entry point. Provider implementations live in subpackages
// (openai, anthropic, gemini, ollama); each returns its SDK's own request parameter type.
package adapter
