package clientip

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStripPort(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"203.0.113.9:41234", "203.0.113.9"},
		{"203.0.113.9", "203.0.113.9"},
		{"[2001:db8::2]:443", "2001:db8::2"},
		{"2001:db8::2", "2001:db8::2"},
		{"[2001:db8::2]", "2001:db8::2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := stripPort(tt.addr); got != tt.want {
			t.Errorf("stripPort(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func newRequest(remoteAddr string, headers map[string]string) *http.Request {
	r := httptest.NewRequest("POST", "/api/v1/analyze", nil)
	r.RemoteAddr = remoteAddr
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestResolvePrimary(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			"CDN header wins over nginx and XFF",
			map[string]string{
				"CF-Connecting-IP": "198.51.100.7",
				"X-Real-IP":        "192.0.2.80",
				"X-Forwarded-For":  "192.0.2.80, 10.0.0.2",
			},
			"198.51.100.7",
		},
		{
			"True-Client-IP outranks X-Real-IP",
			map[string]string{
				"True-Client-IP": "198.51.100.8",
				"X-Real-IP":      "192.0.2.80",
			},
			"198.51.100.8",
		},
		{
			"nginx X-Real-IP outranks X-Forwarded-For",
			map[string]string{
				"X-Real-IP":       "192.0.2.80",
				"X-Forwarded-For": "198.51.100.9",
			},
			"192.0.2.80",
		},
		{
			"first X-Forwarded-For hop when nothing else",
			map[string]string{"X-Forwarded-For": "198.51.100.10, 10.0.0.2, 10.0.0.3"},
			"198.51.100.10",
		},
		{
			"TCP peer when no forwarding headers",
			nil,
			"203.0.113.9",
		},
		{
			"header values are trimmed",
			map[string]string{"CF-Connecting-IP": "  198.51.100.7  "},
			"198.51.100.7",
		},
		{
			"empty header falls through to the next",
			map[string]string{
				"CF-Connecting-IP": "",
				"X-Real-IP":        "192.0.2.80",
			},
			"192.0.2.80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := resolve(newRequest("203.0.113.9:41234", tt.headers))
			if info.Primary != tt.want {
				t.Errorf("Primary = %q, want %q", info.Primary, tt.want)
			}
		})
	}
}

func TestResolveRateLimitKey(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			"peer plus headers, sorted",
			"203.0.113.9:41234",
			map[string]string{
				"CF-Connecting-IP": "198.51.100.7",
				"X-Real-IP":        "192.0.2.80",
			},
			"192.0.2.80|198.51.100.7|203.0.113.9",
		},
		{
			"duplicate addresses collapse",
			"203.0.113.9:41234",
			map[string]string{
				"CF-Connecting-IP": "203.0.113.9",
				"X-Real-IP":        "203.0.113.9",
			},
			"203.0.113.9",
		},
		{
			"only the first forwarded hop counts",
			"10.0.0.1:8080",
			map[string]string{"X-Forwarded-For": "198.51.100.7, 172.16.0.1, 172.16.0.2"},
			"10.0.0.1|198.51.100.7",
		},
		{
			"peer alone without headers",
			"203.0.113.9:41234",
			nil,
			"203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := resolve(newRequest(tt.remoteAddr, tt.headers))
			if info.RateLimitKey != tt.want {
				t.Errorf("RateLimitKey = %q, want %q", info.RateLimitKey, tt.want)
			}
		})
	}
}

func TestMiddlewareRewritesRemoteAddr(t *testing.T) {
	var got Info
	var remoteAddr string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromRequest(r)
		remoteAddr = r.RemoteAddr
	}))

	req := newRequest("203.0.113.9:41234", map[string]string{"CF-Connecting-IP": "198.51.100.7"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if remoteAddr != "198.51.100.7" {
		t.Errorf("RemoteAddr = %q, want the CDN client IP", remoteAddr)
	}
	if got.Primary != "198.51.100.7" {
		t.Errorf("Primary = %q", got.Primary)
	}
	if got.RateLimitKey != "198.51.100.7|203.0.113.9" {
		t.Errorf("RateLimitKey = %q", got.RateLimitKey)
	}
}

func TestFromRequestWithoutMiddleware(t *testing.T) {
	info := FromRequest(newRequest("203.0.113.9:41234", nil))
	if info.Primary != "" || info.RateLimitKey != "" {
		t.Errorf("expected zero Info, got %+v", info)
	}
}
