package http

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

const clientAddrContextKey contextKey = "client_addr"

type clientAddr struct {
	// key identifies the caller to the rate limiter.
	key string
	// display is recorded as the session IP address.
	display string
}

// ClientAddress resolves who is calling. The rate limit key is the socket
// peer, unless the peer is inside one of trusted; then it is the nearest
// X-Forwarded-For hop that is not itself a trusted proxy. Forwarded headers
// from untrusted peers only change the address shown in session listings.
func ClientAddress(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := hostOf(r.RemoteAddr)
			a := clientAddr{key: peer, display: peer}

			if isTrusted(peer, trusted) {
				if fwd := forwardedAddr(r, trusted); fwd != "" {
					a.key, a.display = fwd, fwd
				}
			} else if claimed := claimedAddr(r); claimed != "" {
				a.display = claimed
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), clientAddrContextKey, a)))
		})
	}
}

func clientAddrFrom(r *http.Request) clientAddr {
	if a, ok := r.Context().Value(clientAddrContextKey).(clientAddr); ok {
		return a
	}
	peer := hostOf(r.RemoteAddr)
	return clientAddr{key: peer, display: peer}
}

// rateLimitKey never depends on headers an untrusted client controls.
func rateLimitKey(r *http.Request) string {
	return clientAddrFrom(r).key
}

func displayAddr(r *http.Request) string {
	return clientAddrFrom(r).display
}

func hostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// forwardedAddr walks X-Forwarded-For right to left past trusted proxies.
// X-Real-IP is used when there is no X-Forwarded-For.
func forwardedAddr(r *http.Request, trusted []netip.Prefix) string {
	hops := forwardedHops(r)
	for i := len(hops) - 1; i >= 0; i-- {
		if !isTrusted(hops[i], trusted) {
			return hops[i]
		}
	}
	if len(hops) > 0 {
		return hops[0]
	}
	return validIP(r.Header.Get("X-Real-IP"))
}

// claimedAddr is what the request says about its origin: X-Real-IP, else
// the first X-Forwarded-For hop.
func claimedAddr(r *http.Request) string {
	if ip := validIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if hops := forwardedHops(r); len(hops) > 0 {
		return hops[0]
	}
	return ""
}

func forwardedHops(r *http.Request) []string {
	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(v, ",") {
			if ip := validIP(part); ip != "" {
				hops = append(hops, ip)
			}
		}
	}
	return hops
}

func validIP(s string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}
