package remote

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// IPMatcher matches to an ip or more.
// Each of the four parts is an inclusive range.
type IPMatcher [4]ipPart

type ipPart struct {
	lo, hi int
}

// Match reports whether ip is an IPv4 address in the matcher's range.
func (m IPMatcher) Match(ip string) bool {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return false
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return false
		}
		if n < m[i].lo || n > m[i].hi {
			return false
		}
	}
	return true
}

// IPMatcherFromString parses an ip pattern like "10.0.[0-3].*".
// A part is a number, a "[start-end]" range or "*".
// I don't know how to handle IPv6 yet, so it only speaks IPv4.
func IPMatcherFromString(s string) (IPMatcher, error) {
	var m IPMatcher
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return m, errors.Errorf("ip does not consists of 4 parts: %v", s)
	}
	for i, p := range parts {
		part, err := parseIPPart(p)
		if err != nil {
			return m, errors.Wrapf(err, "ip %v", s)
		}
		m[i] = part
	}
	return m, nil
}

func parseIPPart(p string) (ipPart, error) {
	byteNum := func(s string) (int, error) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return -1, errors.Errorf("not a number: %v", s)
		}
		if n < 0 || n >= 256 {
			return -1, errors.Errorf("an ip part should be 0-255: %v", n)
		}
		return n, nil
	}
	if p == "*" {
		return ipPart{0, 255}, nil
	}
	if strings.HasPrefix(p, "[") && strings.HasSuffix(p, "]") {
		lo, hi, ok := strings.Cut(p[1:len(p)-1], "-")
		if !ok {
			return ipPart{}, errors.Errorf("range should be [start-end]: %v", p)
		}
		s, err := byteNum(lo)
		if err != nil {
			return ipPart{}, err
		}
		e, err := byteNum(hi)
		if err != nil {
			return ipPart{}, err
		}
		if s > e {
			return ipPart{}, errors.Errorf("range start is bigger than end: %v", p)
		}
		return ipPart{s, e}, nil
	}
	n, err := byteNum(p)
	if err != nil {
		return ipPart{}, errors.Errorf("unknown formatting for ip part: %v", p)
	}
	return ipPart{n, n}, nil
}

// DomainMatcher matches to a range of domains.
// A "*" label matches any single label.
type DomainMatcher []string

// DomainMatcherFromString parses a domain pattern like "*.imagvfx.com".
func DomainMatcherFromString(s string) (DomainMatcher, error) {
	if s == "" {
		return nil, errors.New("cannot create a domain matcher from empty string")
	}
	return DomainMatcher(strings.Split(s, ".")), nil
}

// Match reports whether the domain matches. A trailing dot is ignored.
func (m DomainMatcher) Match(domain string) bool {
	domain = strings.TrimSuffix(domain, ".")
	if len(m) == 0 || domain == "" {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) != len(m) {
		return false
	}
	for i, l := range labels {
		if m[i] != "*" && m[i] != l {
			return false
		}
	}
	return true
}

// AccessList decides which client addresses may talk to the manager.
// An empty list allows everyone.
type AccessList struct {
	IPs     []IPMatcher
	Domains []DomainMatcher

	// LookupAddr finds domains of an ip for Domains.
	// net.DefaultResolver.LookupAddr is used when it is nil.
	LookupAddr func(ctx context.Context, ip string) ([]string, error)
}

// NewAccessList parses ip and domain patterns.
func NewAccessList(ips, domains []string) (*AccessList, error) {
	a := &AccessList{}
	for _, s := range ips {
		m, err := IPMatcherFromString(s)
		if err != nil {
			return nil, err
		}
		a.IPs = append(a.IPs, m)
	}
	for _, s := range domains {
		m, err := DomainMatcherFromString(s)
		if err != nil {
			return nil, err
		}
		a.Domains = append(a.Domains, m)
	}
	return a, nil
}

// Allow reports whether a client at ip may connect.
func (a *AccessList) Allow(ctx context.Context, ip string) bool {
	if len(a.IPs) == 0 && len(a.Domains) == 0 {
		return true
	}
	for _, m := range a.IPs {
		if m.Match(ip) {
			return true
		}
	}
	if len(a.Domains) == 0 {
		return false
	}
	lookup := a.LookupAddr
	if lookup == nil {
		lookup = net.DefaultResolver.LookupAddr
	}
	names, err := lookup(ctx, ip)
	if err != nil {
		return false
	}
	for _, name := range names {
		for _, m := range a.Domains {
			if m.Match(name) {
				return true
			}
		}
	}
	return false
}

// UnaryInterceptor rejects calls from clients the list doesn't allow.
func (a *AccessList) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ip := peerIP(ctx)
		if !a.Allow(ctx, ip) {
			return nil, status.Errorf(codes.PermissionDenied, "address not allowed: %v", ip)
		}
		return handler(ctx, req)
	}
}

// peerIP returns the ip of the caller. It is empty for non-tcp peers.
func peerIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok {
		return ""
	}
	tcp, ok := p.Addr.(*net.TCPAddr)
	if !ok {
		return ""
	}
	return tcp.IP.String()
}
