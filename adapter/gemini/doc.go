// Package gemini converts prompt versions into Google Gemini (genai) GenerateContent requests.
//
// ToGemini returns *Request; the model travels in Request.Model since genai takes it per call.
// System and developer messages become Config.SystemInstruction. Tool and response schemas are
// sent as typed genai.Schema when every keyword maps, and as raw JSON Schema otherwise.
// MaxOutputTokens and Seed are clamped to the int32 range.
package gemini
