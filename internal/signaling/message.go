// Package signaling exchanges session descriptions and ICE candidates
// between two peers over a WebSocket relay. Frames are CBOR-encoded
// Messages.
package signaling

import (
	"errors"
	"fmt"
)

// Type identifies a signaling message.
type Type uint8

const (
	// TypePeer is sent by the server to both members once a room is full.
	TypePeer Type = iota + 1
	// TypeBye is sent by the server when the other member left.
	TypeBye
	TypeOffer
	TypeAnswer
	TypeCandidate
)

func (t Type) String() string {
	switch t {
	case TypePeer:
		return "peer"
	case TypeBye:
		return "bye"
	case TypeOffer:
		return "offer"
	case TypeAnswer:
		return "answer"
	case TypeCandidate:
		return "candidate"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Message is one signaling frame.
type Message struct {
	Type      Type   `cbor:"1,keyasint"`
	SDP       string `cbor:"2,keyasint,omitempty"`
	Candidate string `cbor:"3,keyasint,omitempty"`
	Mid       string `cbor:"4,keyasint,omitempty"`
}

var ErrMalformed = errors.New("signaling: malformed message")

// Validate checks that m carries the fields its type needs.
func (m *Message) Validate() error {
	switch m.Type {
	case TypePeer, TypeBye:
		return nil
	case TypeOffer, TypeAnswer:
		if m.SDP == "" {
			return fmt.Errorf("%w: %s without sdp", ErrMalformed, m.Type)
		}
		return nil
	case TypeCandidate:
		if m.Candidate == "" {
			return fmt.Errorf("%w: candidate without candidate line", ErrMalformed)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown %s", ErrMalformed, m.Type)
	}
}
