// Package freightagent provides the version information for freight-agent.
package freightagent

// Version is the current release of freight-agent.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
