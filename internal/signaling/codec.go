package signaling

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding so equal messages produce
// identical frames.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("signaling: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("signaling: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal validates m and encodes it as one frame.
func Marshal(m *Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := encMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("signaling: encode %s: %w", m.Type, err)
	}
	return data, nil
}

// Unmarshal decodes and validates one frame.
func Unmarshal(data []byte) (*Message, error) {
	m := &Message{}
	if err := decMode.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("signaling: decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
