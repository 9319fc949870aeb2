package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ProxySet is a list of trusted proxy networks.
type ProxySet []netip.Prefix

// ParseProxies parses CIDRs and bare addresses ("10.0.0.0/8", "127.0.0.1").
// Invalid entries are logged and skipped.
func ParseProxies(entries []string) ProxySet {
	var set ProxySet
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if p, err := netip.ParsePrefix(entry); err == nil {
			set = append(set, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			slog.Warn("realip: invalid trusted proxy, skipping", "entry", entry, "error", err)
			continue
		}
		addr = addr.Unmap()
		set = append(set, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return set
}

// Contains reports whether addr falls inside any trusted network.
func (s ProxySet) Contains(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range s {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP resolves the client address for r.
//
// Forwarding headers are only read when the connection comes from a trusted
// proxy. X-Real-IP wins when valid; otherwise X-Forwarded-For is walked from
// the right and the first hop that is not itself a trusted proxy is the
// client, so entries a client prepends cannot shadow the real peer.
func (s ProxySet) ClientIP(r *http.Request) (netip.Addr, bool) {
	peer, ok := parseAddr(r.RemoteAddr)
	if !ok {
		return netip.Addr{}, false
	}
	if !s.Contains(peer) {
		return peer, true
	}

	if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return addr, true
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		addr, ok := parseAddr(hops[i])
		if !ok {
			break
		}
		client = addr
		if !s.Contains(addr) {
			break
		}
	}
	return client, true
}

// TrustedRealIP rewrites r.RemoteAddr to the bare client IP resolved by
// ProxySet.ClientIP. Unparseable peers are passed through unchanged.
func TrustedRealIP(trusted []string) func(http.Handler) http.Handler {
	proxies := ParseProxies(trusted)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if addr, ok := proxies.ClientIP(r); ok {
				r.RemoteAddr = addr.String()
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseAddr accepts "ip", "ip:port" and "[ipv6]:port".
func parseAddr(s string) (netip.Addr, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return netip.Addr{}, false
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
