// SPDX-License-Identifier: EPL-2.0

// Package platform provides cross-platform compatibility utilities.
package platform

import "strings"

// WindowsReservedNames are names that cannot be used for files or directories
// on Windows. A project created under one of these names would be unusable
// there, so project-name validation rejects them up front.
var WindowsReservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true,
	"LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// IsWindowsReservedName checks if a name is a Windows reserved name.
// It handles names with extensions by checking just the base portion, since
// Windows reserves "CON.txt" as much as "CON".
func IsWindowsReservedName(name string) bool {
	upper := strings.ToUpper(name)
	if idx := strings.LastIndex(upper, "."); idx != -1 {
		upper = upper[:idx]
	}
	return WindowsReservedNames[upper]
}
