package session

import (
	"net/url"
	"strings"
)

// Platform identifies the video-conference product hosting the meeting.
// Detected once per session and immutable afterwards.
type Platform string

const (
	PlatformZoom       Platform = "zoom"
	PlatformGoogleMeet Platform = "google-meet"
	PlatformUnknown    Platform = "unknown"
)

// DetectPlatform matches a tab URL against the known meeting URL patterns.
// Unmatched URLs return (PlatformUnknown, false) and never create a
// session.
func DetectPlatform(rawURL string) (Platform, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return PlatformUnknown, false
	}

	host := strings.ToLower(u.Hostname())
	path := u.Path

	switch {
	case host == "meet.google.com":
		// Landing page and "new meeting" chooser are not meetings.
		if path == "" || path == "/" || strings.HasPrefix(path, "/landing") {
			return PlatformUnknown, false
		}
		return PlatformGoogleMeet, true
	case host == "zoom.us" || strings.HasSuffix(host, ".zoom.us"):
		if strings.HasPrefix(path, "/j/") || strings.HasPrefix(path, "/wc/") {
			return PlatformZoom, true
		}
		return PlatformUnknown, false
	default:
		return PlatformUnknown, false
	}
}
