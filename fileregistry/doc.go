// Package fileregistry provides a filesystem-based prompt registry that loads
// YAML or JSON records on demand (lazy) and caches them. Use New to create a Registry;
// GetPrompt resolves name and tag to {dir}/{name}.{tag}.yaml (or .yml, .json)
// with fallback to {dir}/{name}.yaml.
package fileregistry
