package muxhandlers

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ErrInvalidProxy is returned when a TrustedProxies entry is neither an IP
// address nor a CIDR prefix.
var ErrInvalidProxy = errors.New("proxy headers: invalid proxy entry")

// DefaultTrustedProxies are the loopback and private ranges trusted when
// ProxyHeadersConfig.TrustedProxies is empty.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"100.64.0.0/10",
	"::1/128",
	"fc00::/7",
}

// ProxyHeadersConfig configures ProxyHeadersHandler.
type ProxyHeadersConfig struct {
	// TrustedProxies lists peer addresses and prefixes whose forwarding
	// headers are honoured. Defaults to DefaultTrustedProxies.
	TrustedProxies []string

	// EnableForwarded falls back to the RFC 7239 Forwarded header when the
	// X-Forwarded-* headers are absent.
	//
	// Spec reference: https://www.rfc-editor.org/rfc/rfc7239
	EnableForwarded bool
}

// ProxyHeadersHandler returns a wrapper that rewrites r.RemoteAddr, the URL
// scheme and r.Host from reverse proxy headers before the router sees the
// request. Headers are ignored unless the peer is a trusted proxy.
//
// Priority per field:
//   - RemoteAddr: X-Forwarded-For (leftmost valid IP), X-Real-IP, Forwarded for=
//   - scheme: X-Forwarded-Proto, X-Forwarded-Scheme, Forwarded proto=
//   - Host: X-Forwarded-Host, Forwarded host=
func ProxyHeadersHandler(cfg ProxyHeadersConfig) (HandlerWrapper, error) {
	entries := cfg.TrustedProxies
	if len(entries) == 0 {
		entries = DefaultTrustedProxies
	}

	trusted, err := parsePrefixes(entries)
	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !trustedPeer(r.RemoteAddr, trusted) {
				next.ServeHTTP(w, r)
				return
			}

			var fwd forwarded
			if cfg.EnableForwarded {
				fwd = parseForwarded(r.Header.Get("Forwarded"))
			}

			if ip := clientIP(r.Header); ip != "" {
				r.RemoteAddr = ip
			} else if fwd.forIP != "" {
				r.RemoteAddr = fwd.forIP
			}

			scheme := forwardedScheme(r.Header)
			if scheme == "" {
				scheme = fwd.proto
			}
			if scheme != "" {
				u := *r.URL
				u.Scheme = scheme
				r.URL = &u
			}

			if host := r.Header.Get("X-Forwarded-Host"); host != "" {
				r.Host = host
			} else if fwd.host != "" {
				r.Host = fwd.host
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

func parsePrefixes(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
			}
			out = append(out, p.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, entry)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

func trustedPeer(remoteAddr string, trusted []netip.Prefix) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	addr, err := netip.ParseAddr(host)
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

// clientIP returns the leftmost valid X-Forwarded-For address, or X-Real-IP.
func clientIP(h http.Header) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		for part := range strings.SplitSeq(xff, ",") {
			if addr, err := netip.ParseAddr(strings.TrimSpace(part)); err == nil {
				return addr.String()
			}
		}
		return ""
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(h.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	return ""
}

func forwardedScheme(h http.Header) string {
	for _, name := range []string{"X-Forwarded-Proto", "X-Forwarded-Scheme"} {
		if v := h.Get(name); v != "" {
			return normalizeScheme(v)
		}
	}
	return ""
}

func normalizeScheme(v string) string {
	v = strings.ToLower(strings.Trim(strings.TrimSpace(v), `"`))
	if v == "http" || v == "https" {
		return v
	}
	return ""
}

// forwarded holds the directives of the first Forwarded element, the one
// added by the proxy closest to the client.
type forwarded struct {
	forIP string
	proto string
	host  string
}

func parseForwarded(header string) forwarded {
	first, _, _ := strings.Cut(header, ",")

	var out forwarded
	for pair := range strings.SplitSeq(first, ";") {
		key, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		val = strings.Trim(strings.TrimSpace(val), `"`)

		switch strings.ToLower(strings.TrimSpace(key)) {
		case "for":
			out.forIP = forwardedIP(val)
		case "proto":
			out.proto = normalizeScheme(val)
		case "host":
			out.host = val
		}
	}
	return out
}

// forwardedIP accepts "192.0.2.60", "[2001:db8::1]" and "[2001:db8::1]:4711".
// Obfuscated identifiers such as "_hidden" yield "".
func forwardedIP(val string) string {
	if addrPort, err := netip.ParseAddrPort(val); err == nil {
		return addrPort.Addr().String()
	}
	if addr, err := netip.ParseAddr(strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")); err == nil {
		return addr.String()
	}
	return ""
}
