package httpx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync/atomic"
)

// KeyExtractor groups requests for rate limiting. "" means no key.
type KeyExtractor func(*http.Request) string

var trustedProxies atomic.Pointer[[]netip.Prefix]

// ParseTrustedProxies parses addresses and CIDR ranges, e.g.
// "10.0.0.0/8" or "127.0.0.1".
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("httpx: trusted proxy %q: %w", s, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("httpx: trusted proxy %q: %w", s, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

// SetTrustedProxies replaces the proxies whose forwarding headers are
// believed. With none set, the peer address is always the client.
func SetTrustedProxies(prefixes []netip.Prefix) {
	p := slices.Clone(prefixes)
	trustedProxies.Store(&p)
}

func isTrustedProxy(addr netip.Addr) bool {
	p := trustedProxies.Load()
	if p == nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range *p {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func peerHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// IPKeyExtractor returns the client address. Forwarding headers are only
// read when the peer is a trusted proxy: X-Forwarded-For is walked from the
// right and the first hop that is not a trusted proxy wins, then X-Real-IP.
func IPKeyExtractor(r *http.Request) string {
	host := peerHost(r)
	peer, err := netip.ParseAddr(host)
	if err != nil || !isTrustedProxy(peer) {
		return host
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !isTrustedProxy(hop) {
			return hop.Unmap().String()
		}
	}
	if ip, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return ip.Unmap().String()
	}
	return host
}

// ClientIP is the address recorded in audit entries.
func ClientIP(r *http.Request) string {
	return IPKeyExtractor(r)
}

// UserIDKeyExtractor returns the account id set by the gate, if any.
func UserIDKeyExtractor(r *http.Request) string {
	return userIDFromCtx(r.Context())
}

// CompositeKeyExtractor joins the non-empty keys of extractors with sep,
// e.g. "42:192.0.2.1".
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(extractors))
		for _, ex := range extractors {
			if k := ex(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKeyExtractor reads a top-level string field of a JSON body,
// lowercased and trimmed. The body is put back for the handler.
func JSONFieldKeyExtractor(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(body, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[field], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}
