package httpserver

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// proxyTrust decides which peers may speak for the client through
// X-Forwarded-For.
type proxyTrust struct {
	prefixes []netip.Prefix
}

func newProxyTrust(entries []string, logger *slog.Logger) proxyTrust {
	var trust proxyTrust
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			trust.prefixes = append(trust.prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			logger.Warn("ignoring invalid trusted proxy",
				"event", "httpserver_trusted_proxy_invalid",
				"module", moduleName,
				"layer", "platform",
				"value", raw,
			)
			continue
		}
		addr = addr.Unmap()
		trust.prefixes = append(trust.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return trust
}

func (p proxyTrust) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range p.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// clientIP returns the socket peer unless it is a trusted proxy. Behind a
// trusted proxy the X-Forwarded-For chain is walked from the right and the
// first hop that is not itself trusted is the client.
func (p proxyTrust) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	peerAddr, err := netip.ParseAddr(peer)
	if err != nil || !p.trusts(peerAddr) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		addr, err := netip.ParseAddr(hop)
		if err != nil {
			return peer
		}
		if !p.trusts(addr) {
			return addr.Unmap().String()
		}
	}
	return peer
}
