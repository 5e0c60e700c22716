// Package access is the Access Gate (C8): deciding whether a request to a
// published list artifact is admitted, by public-access-token comparison
// and/or client-IP allowlist.
//
// It follows the shape of the teacher's internal/proxy.Allowlist (build a
// set of entries once per list, then test membership per request) but
// generalizes exact/CIDR/range parsing into go4.org/netipx.IPSetBuilder so
// a list's allowed_ips can mix all three forms in one set, and the
// membership test becomes a single IPSet.Contains call instead of a
// linear scan of heterogeneous entry types.
package access

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go4.org/netipx"

	"github.com/listforge/listforge/internal/model"
)

// Gate evaluates IP admission and token matching for one list's public
// artifacts.
type Gate struct {
	token   string
	ipSet   *netipx.IPSet
	enabled bool
}

// NewGate builds a Gate from the list's configured rules. enabled mirrors
// IPRestrictionEnabled — an empty/disabled Gate admits everyone.
func NewGate(token string, rules []model.IPRule, enabled bool) (*Gate, error) {
	g := &Gate{token: token, enabled: enabled}
	if !enabled || len(rules) == 0 {
		return g, nil
	}
	var b netipx.IPSetBuilder
	for _, r := range rules {
		switch {
		case r.CIDR != nil:
			prefix, err := cidrToPrefix(r.CIDR)
			if err != nil {
				return nil, fmt.Errorf("access: %w", err)
			}
			b.AddPrefix(prefix)
		case r.Lo != nil && r.Hi != nil:
			lo, ok1 := netip.AddrFromSlice(normalizeIP(r.Lo))
			hi, ok2 := netip.AddrFromSlice(normalizeIP(r.Hi))
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("access: invalid ip range %q", r.Raw)
			}
			b.AddRange(netipx.IPRangeFrom(lo, hi))
		case r.Exact != nil:
			addr, ok := netip.AddrFromSlice(normalizeIP(r.Exact))
			if !ok {
				return nil, fmt.Errorf("access: invalid ip %q", r.Raw)
			}
			b.Add(addr)
		}
	}
	set, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("access: build ip set: %w", err)
	}
	g.ipSet = set
	return g, nil
}

func normalizeIP(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

func cidrToPrefix(n *net.IPNet) (netip.Prefix, error) {
	addr, ok := netip.AddrFromSlice(normalizeIP(n.IP))
	if !ok {
		return netip.Prefix{}, fmt.Errorf("invalid cidr address %v", n.IP)
	}
	ones, _ := n.Mask.Size()
	return netip.PrefixFrom(addr.Unmap(), ones).Masked(), nil
}

// AllowToken reports whether candidate matches the gate's configured
// token, compared in constant time to avoid leaking token contents
// through response-timing side channels.
func (g *Gate) AllowToken(candidate string) bool {
	if g.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(g.token), []byte(candidate)) == 1
}

// AllowIP reports whether ip is admitted by the IP allowlist. Loopback
// addresses are always admitted, matching the original's local-access
// carve-out for health checks and same-host internal fetches.
func (g *Gate) AllowIP(ip netip.Addr) bool {
	if !g.enabled || g.ipSet == nil {
		return true
	}
	if ip.IsLoopback() {
		return true
	}
	return g.ipSet.Contains(ip)
}

// ClientIP resolves the originating client address for r, preferring
// reverse-proxy headers in the order a trusted edge proxy would set them,
// falling back to the TCP peer address. This mirrors the header priority
// the original internal_access helper used ahead of Flask's remote_addr.
func ClientIP(r *http.Request) (netip.Addr, bool) {
	for _, h := range []string{"True-Client-IP", "X-Client-IP", "X-Real-IP"} {
		if v := strings.TrimSpace(r.Header.Get(h)); v != "" {
			if addr, err := netip.ParseAddr(v); err == nil {
				return addr, true
			}
		}
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if addr, err := netip.ParseAddr(first); err == nil {
			return addr, true
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}
