package datachannel

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEServersFromPion converts pion ICE servers into libdatachannel URLs,
// moving credentials into the URL ("turn:user:pass@host:port").
func ICEServersFromPion(servers []webrtc.ICEServer) ([]ICEServer, error) {
	var out []ICEServer
	for _, s := range servers {
		credential := ""
		if s.Credential != nil {
			c, ok := s.Credential.(string)
			if !ok {
				return nil, fmt.Errorf("ice server %v: only password credentials are supported", s.URLs)
			}
			credential = c
		}
		for _, u := range s.URLs {
			withCreds, err := iceURLWithCredentials(u, s.Username, credential)
			if err != nil {
				return nil, err
			}
			out = append(out, ICEServer(withCreds))
		}
	}
	return out, nil
}

// iceURLWithCredentials inserts percent-encoded credentials into a TURN
// URL. STUN URLs and empty usernames pass through unchanged.
func iceURLWithCredentials(raw, username, credential string) (string, error) {
	scheme, rest, ok := strings.Cut(raw, ":")
	if !ok || rest == "" {
		return "", fmt.Errorf("ice server %q: %w", raw, errMalformedAddress)
	}
	scheme = strings.ToLower(scheme)
	switch scheme {
	case "stun", "stuns":
		return raw, nil
	case "turn", "turns":
	default:
		return "", fmt.Errorf("ice server %q: unsupported scheme %q", raw, scheme)
	}
	if username == "" {
		return raw, nil
	}
	if strings.Contains(rest, "@") {
		return "", fmt.Errorf("ice server %q: credentials given twice", raw)
	}
	return scheme + ":" + escapeCredential(username) + ":" + escapeCredential(credential) + "@" + rest, nil
}

func escapeCredential(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DescriptionFromPion converts a pion session description.
func DescriptionFromPion(d webrtc.SessionDescription) (Description, error) {
	t, err := ParseDescriptionType(d.Type.String())
	if err != nil {
		return Description{}, err
	}
	return Description{SDP: d.SDP, Type: t}, nil
}

// ToPion converts d for use with a pion peer connection.
func (d Description) ToPion() (webrtc.SessionDescription, error) {
	t := webrtc.NewSDPType(d.Type.String())
	if t == webrtc.SDPTypeUnknown {
		return webrtc.SessionDescription{}, fmt.Errorf("description type %s: %w", d.Type, ErrInvalid)
	}
	return webrtc.SessionDescription{Type: t, SDP: d.SDP}, nil
}

// CandidateFromPion converts a pion candidate.
func CandidateFromPion(c webrtc.ICECandidateInit) Candidate {
	out := Candidate{Candidate: c.Candidate}
	if c.SDPMid != nil {
		out.Mid = *c.SDPMid
	}
	return out
}

// ToPion converts c for pion's AddICECandidate.
func (c Candidate) ToPion() webrtc.ICECandidateInit {
	init := webrtc.ICECandidateInit{Candidate: strings.TrimPrefix(c.Candidate, "a=")}
	if c.Mid != "" {
		mid := c.Mid
		init.SDPMid = &mid
	}
	return init
}
