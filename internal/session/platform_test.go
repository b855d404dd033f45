package session

import "testing"

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		want     Platform
		detected bool
	}{
		{"google meet room", "https://meet.google.com/abc-defg-hij", PlatformGoogleMeet, true},
		{"google meet landing", "https://meet.google.com/landing", PlatformUnknown, false},
		{"google meet root", "https://meet.google.com/", PlatformUnknown, false},
		{"zoom join link", "https://zoom.us/j/123456789", PlatformZoom, true},
		{"zoom web client", "https://app.zoom.us/wc/123456789/join", PlatformZoom, true},
		{"zoom subdomain join", "https://us02web.zoom.us/j/987654321", PlatformZoom, true},
		{"zoom marketing page", "https://zoom.us/pricing", PlatformUnknown, false},
		{"unrelated site", "https://example.com/meeting", PlatformUnknown, false},
		{"not a url", "::::", PlatformUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectPlatform(tt.url)
			if got != tt.want || ok != tt.detected {
				t.Fatalf("DetectPlatform(%q) = (%v, %v), want (%v, %v)", tt.url, got, ok, tt.want, tt.detected)
			}
		})
	}
}
