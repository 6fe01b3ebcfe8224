// Package anthropic converts prompt versions into *anthropic.MessageNewParams for the
// Anthropic Messages API.
//
// System and developer messages are lifted into MessageNewParams.System, one text block each.
// Images are sent by URL, or as base64 blocks when given as data: URIs.
// Tool results may appear in tool or user messages and become tool_result blocks in a user turn.
//
// Tool schema: "type", "properties" and "required" map to the input schema fields; every other
// top-level JSON Schema keyword is carried through ExtraFields.
//
// max_tokens is required by the API; when invocation parameters omit it, DefaultMaxTokens is used.
package anthropic
