// Package clientip resolves the real client IP behind the CDN and reverse
// proxy tiers in front of the API, and derives the composite key the rate
// limiters bucket on.
package clientip

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"
)

type contextKey struct{}

var infoKey = contextKey{}

// proxyHeaders are the trusted forwarding headers, most trusted first.
// CF-Connecting-IP and True-Client-IP are set at the CDN edge, X-Real-IP
// by the nginx tier. X-Forwarded-For is handled separately because only
// its first hop carries the client.
var proxyHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
}

// Info is the resolved client identity for one request.
type Info struct {
	// Primary is the single most trusted IP, used for logging.
	Primary string

	// RateLimitKey joins every IP seen on the request, sorted and
	// deduplicated, with the TCP peer always included. A spoofed
	// forwarding header therefore narrows a client's budget instead of
	// granting a fresh one.
	RateLimitKey string
}

// Middleware resolves the client IP once per request, rewrites
// r.RemoteAddr to the primary IP, and stores Info in the context for the
// rate limiters and the access log.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := resolve(r)
		r.RemoteAddr = info.Primary

		ctx := context.WithValue(r.Context(), infoKey, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the resolved Info, or a zero Info when the
// middleware did not run.
func FromContext(ctx context.Context) Info {
	if info, ok := ctx.Value(infoKey).(Info); ok {
		return info
	}
	return Info{}
}

func FromRequest(r *http.Request) Info {
	return FromContext(r.Context())
}

func resolve(r *http.Request) Info {
	seen := make(map[string]bool)

	// The TCP peer anchors the composite key; it is the one address a
	// client cannot choose freely.
	peer := stripPort(r.RemoteAddr)
	if peer != "" {
		seen[peer] = true
	}

	var primary string
	note := func(ip string) {
		if ip == "" {
			return
		}
		seen[ip] = true
		if primary == "" {
			primary = ip
		}
	}

	for _, h := range proxyHeaders {
		note(strings.TrimSpace(r.Header.Get(h)))
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		note(strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0]))
	}
	if primary == "" {
		primary = peer
	}

	ips := make([]string, 0, len(seen))
	for ip := range seen {
		ips = append(ips, ip)
	}
	sort.Strings(ips)

	return Info{
		Primary:      primary,
		RateLimitKey: strings.Join(ips, "|"),
	}
}

// stripPort reduces a network address to its host part. Handles
// "ip:port", "[v6]:port", and bare addresses with or without brackets.
func stripPort(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
