// Package device turns a User-Agent header into the short label shown next to
// a login session ("Firefox on Linux").
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a "<browser> on <os>" label, or "Unknown Device"
// when the header is empty.
func ParseUserAgent(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return unknownDevice
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	if ua.Bot() {
		browser = "Bot"
	}
	if browser == "" {
		browser = "Unknown Browser"
	}

	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}

	label := browser + " on " + os
	if ua.Mobile() && !strings.Contains(label, "Mobile") {
		label += " (mobile)"
	}
	return strings.Join(strings.Fields(label), " ")
}
