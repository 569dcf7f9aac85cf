package dvs

import (
	"bytes"
	"testing"
)

func TestEncodeStart(t *testing.T) {
	got, err := EncodeStart("192.168.1.10", 4301)
	if err != nil {
		t.Fatal(err)
	}
	// Address octets ride the wire reversed (little-endian integer).
	want := []byte{0, 10, 1, 168, 192, 0xCD, 0x10}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodeStart = % X, want % X", got, want)
	}
}

func TestEncodeStartRejectsBadHost(t *testing.T) {
	if _, err := EncodeStart("camera.local", 4301); err == nil {
		t.Error("expected error for a non-IPv4 host")
	}
}

func TestParseRoundTrip(t *testing.T) {
	msg, err := ParseMessage([]byte{0, 10, 1, 168, 192, 0xCD, 0x10})
	if err != nil {
		t.Fatal(err)
	}
	if !msg.Start || msg.Host != "192.168.1.10" || msg.Port != 4301 {
		t.Errorf("ParseMessage = %+v", msg)
	}
}

func TestParseStop(t *testing.T) {
	// Any non-zero leading byte is a stop, payload or not.
	for _, b := range [][]byte{{1}, {9, 9, 9}, {0xFF}} {
		msg, err := ParseMessage(b)
		if err != nil {
			t.Fatalf("ParseMessage(% X): %v", b, err)
		}
		if msg.Start {
			t.Errorf("ParseMessage(% X) decoded as start", b)
		}
	}
}

func TestParseTrailingBytesIgnored(t *testing.T) {
	msg, err := ParseMessage([]byte{0, 1, 0, 0, 127, 0x10, 0x00, 0xAA, 0xBB})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Host != "127.0.0.1" || msg.Port != 16 {
		t.Errorf("ParseMessage = %+v", msg)
	}
}

func TestParseMalformed(t *testing.T) {
	if _, err := ParseMessage(nil); err == nil {
		t.Error("empty message accepted")
	}
	if _, err := ParseMessage([]byte{0, 1, 2}); err == nil {
		t.Error("short start message accepted")
	}
}
