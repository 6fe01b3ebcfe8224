// Package otelconv traces prompt conversions with OpenTelemetry.
//
// Each conversion runs inside a span named "promptsdk.convert" carrying the
// provider, prompt label, model and template format. Failed conversions record
// the error, the failing stage and an Error status; ToParams keeps the
// fail-closed contract of the adapters (nil result, one warning log).
package otelconv
