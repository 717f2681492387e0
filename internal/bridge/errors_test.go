package bridge_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		want     int
		sentinel error
		kind     bridge.Kind
	}{
		{"positive value", 42, 42, nil, 0},
		{"handle one", 1, 1, nil, 0},
		{"success", bridge.CodeSuccess, 0, nil, 0},
		{"invalid", bridge.CodeInvalid, bridge.ExceptionThrown, bridge.ErrInvalid, bridge.KindInvalid},
		{"failure", bridge.CodeFailure, bridge.ExceptionThrown, bridge.ErrFailure, bridge.KindFailure},
		{"not available", bridge.CodeNotAvail, bridge.ExceptionThrown, bridge.ErrNotAvailable, bridge.KindNotAvailable},
		{"too small", bridge.CodeTooSmall, bridge.ExceptionThrown, bridge.ErrTooSmall, bridge.KindTooSmall},
		{"unknown", -17, bridge.ExceptionThrown, bridge.ErrUnknown, bridge.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bridge.Translate("rtcTest", tt.code)
			assert.Equal(t, tt.want, got)
			if tt.sentinel == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)

			var berr *bridge.Error
			require.True(t, errors.As(err, &berr))
			assert.Equal(t, "rtcTest", berr.Op)
			assert.Equal(t, tt.code, berr.Code)
			assert.Equal(t, tt.kind, berr.Kind)
			assert.Contains(t, err.Error(), "rtcTest")
		})
	}
}

func TestTranslateIsPure(t *testing.T) {
	for _, code := range []int{7, 0, -1, -2, -3, -4, -99} {
		v1, err1 := bridge.Translate("op", code)
		v2, err2 := bridge.Translate("op", code)
		assert.Equal(t, v1, v2)
		assert.Equal(t, err1, err2)
	}
	for _, op := range []string{"a", "b", ""} {
		v, err := bridge.Translate(op, 5)
		assert.Equal(t, 5, v)
		assert.NoError(t, err)
	}
}

func TestUnknownErrorCarriesCode(t *testing.T) {
	_, err := bridge.Translate("rtcSendMessage", -42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-42")
	assert.NotErrorIs(t, err, bridge.ErrFailure)
}

func TestRaiseOnKeepsFirstError(t *testing.T) {
	tc := bridge.NewThreadContext(1)

	assert.Equal(t, 3, bridge.RaiseOn(tc, "first", 3))
	assert.NoError(t, tc.Pending())

	assert.Equal(t, bridge.ExceptionThrown, bridge.RaiseOn(tc, "first", bridge.CodeFailure))
	assert.Equal(t, bridge.ExceptionThrown, bridge.RaiseOn(tc, "second", bridge.CodeInvalid))

	err := tc.TakePending()
	require.Error(t, err)
	assert.ErrorIs(t, err, bridge.ErrFailure)
	assert.Contains(t, err.Error(), "first")
	assert.NoError(t, tc.Pending())
}
