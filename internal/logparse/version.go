// Package logparse extracts facts from server console output.
package logparse

import "regexp"

// VersionScanLines is how many trailing log lines are searched for the
// running version.
const VersionScanLines = 200

// VersionRegex matches the start-up banner of a Minecraft server.
var VersionRegex = regexp.MustCompile(`(?i)Starting minecraft server version ([0-9.]+)`)

// RunningVersion returns the first version announced in lines, or "".
func RunningVersion(lines []string) string {
	for _, line := range lines {
		if m := VersionRegex.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}
