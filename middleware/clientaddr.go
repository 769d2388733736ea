package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientAddr returns the address the request originates from. With
// trustedProxies = 0 it is the peer address. Otherwise the peer and the
// X-Forwarded-For entries form a list and the entry trustedProxies
// positions left of the peer is used; a shorter list yields its leftmost
// entry.
func ClientAddr(r *http.Request, trustedProxies int) string {
	peer := hostOnly(r.RemoteAddr)
	if trustedProxies <= 0 {
		return peer
	}

	var chain []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				chain = append(chain, hostOnly(part))
			}
		}
	}
	chain = append(chain, peer)

	i := len(chain) - 1 - trustedProxies
	if i < 0 {
		i = 0
	}
	return chain[i]
}

func hostOnly(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
