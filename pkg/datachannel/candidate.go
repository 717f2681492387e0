package datachannel

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/pion/ice/v4"
)

// Candidate is an ICE candidate line and the media it belongs to, as
// exchanged through signaling.
type Candidate struct {
	Candidate string
	Mid       string
}

// Parse decodes the candidate line.
func (c Candidate) Parse() (CandidateInfo, error) {
	return ParseCandidate(c.Candidate)
}

// CandidateInfo is the transport address of a candidate. Type and Network
// are only known when parsed from a full candidate line.
type CandidateInfo struct {
	Host    string
	Port    uint16
	Type    string // host, srflx, prflx or relay
	Network string // udp or tcp
}

// AddrPort returns the address when Host is an IP literal, which it is
// not for mDNS host candidates.
func (c CandidateInfo) AddrPort() (netip.AddrPort, bool) {
	addr, err := netip.ParseAddr(c.Host)
	if err != nil {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(addr.Unmap(), c.Port), true
}

func (c CandidateInfo) String() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// CandidatePair is the pair of candidates selected by ICE.
type CandidatePair struct {
	Local  CandidateInfo
	Remote CandidateInfo
}

func (p CandidatePair) String() string {
	return p.Local.String() + " <-> " + p.Remote.String()
}

var errMalformedAddress = errors.New("malformed address")

// ParseCandidate accepts either a candidate line ("a=candidate:..." or
// "candidate:...") or a bare "host:port" address.
func ParseCandidate(s string) (CandidateInfo, error) {
	line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "a="))
	if rest, ok := strings.CutPrefix(line, "candidate:"); ok {
		c, err := ice.UnmarshalCandidate(rest)
		if err != nil {
			return CandidateInfo{}, fmt.Errorf("candidate %q: %w", s, err)
		}
		return CandidateInfo{
			Host:    c.Address(),
			Port:    uint16(c.Port()),
			Type:    c.Type().String(),
			Network: c.NetworkType().NetworkShort(),
		}, nil
	}

	host, port, err := splitHostPort(line)
	if err != nil {
		return CandidateInfo{}, fmt.Errorf("candidate %q: %w", s, err)
	}
	return CandidateInfo{Host: host, Port: port}, nil
}

// splitHostPort splits at the last colon, so unbracketed IPv6 addresses
// work too.
func splitHostPort(s string) (string, uint16, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return "", 0, errMalformedAddress
	}
	host := strings.TrimSuffix(strings.TrimPrefix(s[:i], "["), "]")
	port, err := strconv.ParseUint(s[i+1:], 10, 16)
	if err != nil {
		return "", 0, fmt.Errorf("%w: port: %w", errMalformedAddress, err)
	}
	return host, uint16(port), nil
}

// parseAddrPort parses the addresses returned by rtcGetLocalAddress and
// rtcGetRemoteAddress.
func parseAddrPort(s string) (netip.AddrPort, error) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap, nil
	}
	host, port, err := splitHostPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("address %q: %w", s, err)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("address %q: %w", s, err)
	}
	return netip.AddrPortFrom(addr, port), nil
}

func parseCandidatePair(local, remote string) (CandidatePair, error) {
	l, err := ParseCandidate(local)
	if err != nil {
		return CandidatePair{}, fmt.Errorf("local: %w", err)
	}
	r, err := ParseCandidate(remote)
	if err != nil {
		return CandidatePair{}, fmt.Errorf("remote: %w", err)
	}
	return CandidatePair{Local: l, Remote: r}, nil
}
