package internal

import "strings"

// DeviceInfo is a coarse classification of a User-Agent string. It is
// descriptive metadata for session listings and audit records, never a
// security signal.
type DeviceInfo struct {
	OS         string
	Browser    string
	DeviceType string
}

// ClassifyUserAgent buckets a User-Agent into os, browser and device
// type. Unrecognized agents come back as Unknown/Other/desktop.
func ClassifyUserAgent(ua string) DeviceInfo {
	lower := strings.ToLower(ua)

	isIPad := strings.Contains(lower, "ipad")
	isIPhone := strings.Contains(lower, "iphone")
	isAndroid := strings.Contains(lower, "android")
	hasMobile := strings.Contains(lower, "mobile")
	isMobile := isIPhone || (isAndroid && hasMobile)
	isTablet := isIPad || (isAndroid && !hasMobile)

	os := "Unknown"
	switch {
	case isIPhone || isIPad:
		os = "iOS"
	case isAndroid:
		os = "Android"
	case strings.Contains(lower, "windows"):
		os = "Windows"
	case strings.Contains(lower, "mac os x"):
		os = "Mac"
	case strings.Contains(lower, "linux"):
		os = "Linux"
	}

	browser := "Other"
	switch {
	case strings.Contains(lower, "edg/"):
		browser = "Edge"
	case strings.Contains(lower, "chrome/"):
		browser = "Chrome"
	case strings.Contains(lower, "safari/"):
		browser = "Safari"
	case strings.Contains(lower, "firefox/"):
		browser = "Firefox"
	case strings.Contains(lower, "opera"), strings.Contains(lower, "opr/"):
		browser = "Opera"
	}

	deviceType := "desktop"
	switch {
	case isMobile:
		deviceType = "mobile"
	case isTablet:
		deviceType = "tablet"
	}

	return DeviceInfo{
		OS:         os,
		Browser:    browser,
		DeviceType: deviceType,
	}
}
