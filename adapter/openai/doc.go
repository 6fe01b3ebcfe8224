// Package openai converts prompt versions into *openai.ChatCompletionNewParams for the
// OpenAI Chat Completions API. The same converter serves Azure OpenAI (ToAzureOpenAI).
//
// ImagePart: detail defaults to "auto" (see WithImageDetail).
// ToolCallPart.Arguments must be valid JSON when non-empty; otherwise adapter.ErrMalformedArgs is returned.
package openai
