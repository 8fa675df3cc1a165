// Package capability fetches agent-served A2A agent cards and MCP
// JSON-RPC capability listings over HTTPS, with shared SSRF
// hardening.
package capability

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var blockedHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"0.0.0.0":   {},
	// common cloud metadata endpoints
	"169.254.169.254": {},
	"metadata.google.internal": {},
}

var blockedCIDRs = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"169.254.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("capability: invalid CIDR literal %q: %v", c, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// admitURL is the indirection the fetchers call through; tests swap it
// so a loopback httptest server can stand in for a remote agent.
var admitURL = AdmitURL

// AdmitURL validates that rawURL is safe to fetch: https-only, not in
// the static blocklist, not an RFC1918 address, and not a
// .local/.internal suffix. It never performs a DNS lookup or network
// call; a blocked URL is rejected before anything goes on the wire.
func AdmitURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("capability: cannot parse url %q: %w", rawURL, err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("capability: scheme %q is not allowed, only https", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("capability: url %q has no host", rawURL)
	}
	lowerHost := strings.ToLower(host)

	if _, blocked := blockedHosts[lowerHost]; blocked {
		return nil, fmt.Errorf("capability: host %q is blocklisted", host)
	}
	if strings.HasSuffix(lowerHost, ".local") || strings.HasSuffix(lowerHost, ".internal") {
		return nil, fmt.Errorf("capability: host %q has a disallowed suffix", host)
	}
	if ip := net.ParseIP(lowerHost); ip != nil {
		for _, n := range blockedCIDRs {
			if n.Contains(ip) {
				return nil, fmt.Errorf("capability: host %q is within a blocked CIDR", host)
			}
		}
		if ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
			return nil, fmt.Errorf("capability: host %q is a disallowed literal IP", host)
		}
	}
	return u, nil
}
