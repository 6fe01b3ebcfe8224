// Package embedregistry provides an embed.FS-based prompt registry that loads
// all YAML and JSON records at construction (eager). Use New with an fs.FS and root path;
// GetPrompt performs an O(1) lookup by name and tag.
package embedregistry
