package util

import "strings"

// DeviceName derives a coarse human-readable label from a User-Agent string.
// Heartbeats that carry no explicit device name fall back to this.
func DeviceName(userAgent string) string {
	name := "Unknown device"
	switch {
	case strings.Contains(userAgent, "Windows"):
		name = "Windows"
	case strings.Contains(userAgent, "Mac"):
		name = "Mac"
	case strings.Contains(userAgent, "Android"):
		name = "Android"
	case strings.Contains(userAgent, "iPhone"), strings.Contains(userAgent, "iPad"):
		name = "iPhone/iPad"
	case strings.Contains(userAgent, "Linux"):
		name = "Linux"
	}
	switch {
	case strings.Contains(userAgent, "Edg"):
		name += " - Edge"
	case strings.Contains(userAgent, "Chrome"):
		name += " - Chrome"
	case strings.Contains(userAgent, "Firefox"):
		name += " - Firefox"
	case strings.Contains(userAgent, "Safari"):
		name += " - Safari"
	}
	return name
}
