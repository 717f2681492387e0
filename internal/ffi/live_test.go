package ffi

import (
	"os"
	"strings"
	"testing"

	"github.com/thesyncim/libgodatachannel/internal/bridge"
)

// Live tests require libdatachannel to be present.
// Set LIBDATACHANNEL_PATH to the library path, and LIBDATACHANNEL_TEST_REQUIRE
// to turn a missing library into a failure.
func loadOrSkip(t *testing.T) *Lib {
	t.Helper()
	if err := LoadLibrary(); err != nil {
		if os.Getenv("LIBDATACHANNEL_TEST_REQUIRE") != "" {
			t.Fatalf("libdatachannel required: %v", err)
		}
		t.Skip("library not available:", err)
	}
	lib, err := NewEngine()
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func TestLiveOfferHasDataSection(t *testing.T) {
	lib := loadOrSkip(t)

	pc := lib.CreatePeerConnection(&bridge.PeerConfig{})
	if pc < 0 {
		t.Fatalf("rtcCreatePeerConnection = %d", pc)
	}
	defer lib.DeletePeerConnection(int32(pc))

	dc := lib.CreateDataChannel(int32(pc), "probe", &bridge.ChannelInit{Protocol: "json"})
	if dc < 0 {
		t.Fatalf("rtcCreateDataChannelEx = %d", dc)
	}
	if err := bridge.Check("rtcSetLocalDescription", lib.SetLocalDescription(int32(pc), "offer")); err != nil {
		t.Fatal(err)
	}

	sdp, err := bridge.QueryString(lib, int32(pc), bridge.FieldLocalDescription)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sdp, "m=application") {
		t.Errorf("offer has no application section:\n%s", sdp)
	}
	typ, err := bridge.QueryString(lib, int32(pc), bridge.FieldLocalDescriptionType)
	if err != nil || typ != "offer" {
		t.Errorf("local description type = %q, %v", typ, err)
	}

	label, err := bridge.QueryString(lib, int32(dc), bridge.FieldChannelLabel)
	if err != nil || label != "probe" {
		t.Errorf("label = %q, %v", label, err)
	}
	protocol, err := bridge.QueryString(lib, int32(dc), bridge.FieldChannelProtocol)
	if err != nil || protocol != "json" {
		t.Errorf("protocol = %q, %v", protocol, err)
	}
}

func TestLiveInvalidHandle(t *testing.T) {
	lib := loadOrSkip(t)

	if code := lib.ClosePeerConnection(1 << 30); code != bridge.CodeInvalid {
		t.Errorf("close unknown handle = %d, want %d", code, bridge.CodeInvalid)
	}
	_, err := bridge.QueryString(lib, 1<<30, bridge.FieldLocalDescription)
	if err == nil {
		t.Error("expected an error for an unknown handle")
	}
}

func TestLiveUserPointerRoundTrip(t *testing.T) {
	lib := loadOrSkip(t)

	pc := lib.CreatePeerConnection(nil)
	if pc < 0 {
		t.Fatalf("rtcCreatePeerConnection = %d", pc)
	}
	defer lib.DeletePeerConnection(int32(pc))

	lib.SetUserPointer(int32(pc), 12345)
	if got := lib.GetUserPointer(int32(pc)); got != 12345 {
		t.Errorf("user pointer = %d, want 12345", got)
	}
	for _, k := range bridge.PeerKinds {
		if code := lib.SetCallback(int32(pc), k, true); code != bridge.CodeSuccess {
			t.Errorf("%s = %d", bridge.CallbackOp(k), code)
		}
		if code := lib.SetCallback(int32(pc), k, false); code != bridge.CodeSuccess {
			t.Errorf("clear %s = %d", bridge.CallbackOp(k), code)
		}
	}
}
