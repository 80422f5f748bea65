package internal

import "testing"

func TestClassifyUserAgent(t *testing.T) {
	cases := []struct {
		name string
		ua   string
		want DeviceInfo
	}{
		{
			name: "chrome on windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: DeviceInfo{OS: "Windows", Browser: "Chrome", DeviceType: "desktop"},
		},
		{
			name: "edge reported before chrome",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			want: DeviceInfo{OS: "Windows", Browser: "Edge", DeviceType: "desktop"},
		},
		{
			name: "safari on iphone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			want: DeviceInfo{OS: "iOS", Browser: "Safari", DeviceType: "mobile"},
		},
		{
			name: "ipad is a tablet",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			want: DeviceInfo{OS: "iOS", Browser: "Safari", DeviceType: "tablet"},
		},
		{
			name: "android phone",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			want: DeviceInfo{OS: "Android", Browser: "Chrome", DeviceType: "mobile"},
		},
		{
			name: "android tablet has no mobile token",
			ua:   "Mozilla/5.0 (Linux; Android 14; SM-X910) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: DeviceInfo{OS: "Android", Browser: "Chrome", DeviceType: "tablet"},
		},
		{
			name: "firefox on linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0",
			want: DeviceInfo{OS: "Linux", Browser: "Firefox", DeviceType: "desktop"},
		},
		{
			name: "legacy opera on mac",
			ua:   "Opera/9.80 (Macintosh; Intel Mac OS X 10.15.7) Presto/2.12.388 Version/12.16",
			want: DeviceInfo{OS: "Mac", Browser: "Opera", DeviceType: "desktop"},
		},
		{
			name: "chromium opera reports as chrome",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0",
			want: DeviceInfo{OS: "Mac", Browser: "Chrome", DeviceType: "desktop"},
		},
		{
			name: "empty user agent",
			ua:   "",
			want: DeviceInfo{OS: "Unknown", Browser: "Other", DeviceType: "desktop"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyUserAgent(tc.ua)
			if got != tc.want {
				t.Fatalf("ClassifyUserAgent(%q) = %+v, want %+v", tc.ua, got, tc.want)
			}
		})
	}
}
