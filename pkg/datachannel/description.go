package datachannel

import (
	"fmt"
	"strings"

	"github.com/pion/sdp/v3"
)

// Description is a session description and its type.
type Description struct {
	SDP  string
	Type DescriptionType
}

// Parse decodes the SDP.
func (d Description) Parse() (*sdp.SessionDescription, error) {
	s := &sdp.SessionDescription{}
	if err := s.Unmarshal([]byte(d.SDP)); err != nil {
		return nil, fmt.Errorf("datachannel: parse %s: %w", d.Type, err)
	}
	return s, nil
}

// MediaSection summarizes one m= section.
type MediaSection struct {
	Kind      string // audio, video or application
	Mid       string
	Direction Direction
}

// MediaSections lists the m= sections of the description in order.
func (d Description) MediaSections() ([]MediaSection, error) {
	s, err := d.Parse()
	if err != nil {
		return nil, err
	}
	out := make([]MediaSection, 0, len(s.MediaDescriptions))
	for _, md := range s.MediaDescriptions {
		mid, _ := md.Attribute("mid")
		out = append(out, MediaSection{
			Kind:      md.MediaName.Media,
			Mid:       mid,
			Direction: mediaDirection(md),
		})
	}
	return out, nil
}

// HasDataChannel reports whether the description negotiates SCTP data
// channels.
func (d Description) HasDataChannel() bool {
	sections, err := d.MediaSections()
	if err != nil {
		return false
	}
	for _, m := range sections {
		if m.Kind == "application" {
			return true
		}
	}
	return false
}

func mediaDirection(md *sdp.MediaDescription) Direction {
	for _, d := range []Direction{DirectionSendRecv, DirectionSendOnly, DirectionRecvOnly, DirectionInactive} {
		if _, ok := md.Attribute(d.String()); ok {
			return d
		}
	}
	return DirectionUnknown
}

// sessionPreamble turns a lone m= section into a parseable session.
const sessionPreamble = "v=0\r\no=- 0 0 IN IP4 0.0.0.0\r\ns=-\r\nt=0 0\r\n"

// parseMediaSection parses the media description of a track.
func parseMediaSection(section string) (*sdp.MediaDescription, error) {
	section = strings.ReplaceAll(strings.TrimSpace(section), "\r\n", "\n")
	section = strings.ReplaceAll(section, "\n", "\r\n") + "\r\n"
	s := &sdp.SessionDescription{}
	if err := s.Unmarshal([]byte(sessionPreamble + section)); err != nil {
		return nil, fmt.Errorf("datachannel: parse media description: %w", err)
	}
	if len(s.MediaDescriptions) != 1 {
		return nil, fmt.Errorf("datachannel: %d media sections, want 1", len(s.MediaDescriptions))
	}
	return s.MediaDescriptions[0], nil
}
