package identity

import (
	"net"
	"net/http"
	"strings"
)

// fallbackIP stands in when no usable address is present.
const fallbackIP = "127.0.0.1"

// Identity is a resolved, non-authenticated voter identifier. IP is
// always set; Token is the persistent device token when one exists.
type Identity struct {
	IP    string
	Token string
}

// ResolveIP derives the voter's network address from request metadata.
// Trust order: first X-Forwarded-For hop, then X-Real-IP, then the
// socket address. Best effort, no error path.
func ResolveIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// Client address is the first hop in the chain.
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if ip := normalizeIP(first); ip != "" {
			return ip
		}
	}

	if real := r.Header.Get("X-Real-IP"); real != "" {
		if ip := normalizeIP(real); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip := normalizeIP(host); ip != "" {
		return ip
	}
	return fallbackIP
}

// normalizeIP canonicalizes an address string: IPv4-mapped IPv6 becomes
// dotted IPv4 and loopback forms collapse to 127.0.0.1. Returns "" for
// unparseable input.
func normalizeIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	if ip.IsLoopback() {
		return fallbackIP
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}
