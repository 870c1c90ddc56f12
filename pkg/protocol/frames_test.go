package protocol

import (
	"errors"
	"testing"
)

func TestEventRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"internal link", Event{Type: EventLinkClicked, Href: "/about?tab=1"}},
		{"external link", Event{Type: EventLinkClicked, Href: "https://example.com", External: true}},
		{"url changed", Event{Type: EventURLChanged, Href: "/counter"}},
		{"viewport reply", Event{Type: EventViewport, GrabID: 7, X: 12, Y: 340}},
		{"negative scroll", Event{Type: EventViewport, GrabID: 1, X: -3, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := EncodeEvent(&tt.ev)
			got, err := DecodeEvent(buf)
			if err != nil {
				t.Fatalf("DecodeEvent error = %v", err)
			}
			if *got != tt.ev {
				t.Errorf("round trip = %+v, want %+v", *got, tt.ev)
			}
		})
	}
}

func TestOpsRoundTrip(t *testing.T) {
	ops := []Op{
		NewGetViewportOp(3),
		NewScrollToOp(12, 340),
		NewNavPushOp("/about"),
		NewNavReplaceOp("/login?next=%2F"),
		NewLeaveAppOp("https://example.com"),
		NewSetTitleOp("About"),
		NewRenderHTMLOp("<h1>About</h1>"),
	}

	buf := EncodeOps(ops)
	got, err := DecodeOps(buf)
	if err != nil {
		t.Fatalf("DecodeOps error = %v", err)
	}
	if len(got) != len(ops) {
		t.Fatalf("decoded %d ops, want %d", len(got), len(ops))
	}
	for i := range ops {
		if got[i] != ops[i] {
			t.Errorf("op %d = %+v, want %+v", i, got[i], ops[i])
		}
	}
}

func TestDecodeEventErrors(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"wrong frame type", []byte{byte(FrameOps), byte(EventURLChanged)}},
		{"unknown event type", []byte{byte(FrameEvent), 0xEE}},
		{"truncated string", []byte{byte(FrameEvent), byte(EventURLChanged), 10, 'a'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeEvent(tt.buf); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

func TestDecodeOpsErrors(t *testing.T) {
	// Trailing garbage after the declared op count.
	buf := append(EncodeOps([]Op{NewNavPushOp("/")}), 0xFF)
	if _, err := DecodeOps(buf); err == nil {
		t.Error("expected error for trailing bytes")
	}

	// Absurd collection count.
	e := NewEncoder()
	e.WriteByte(byte(FrameOps))
	e.WriteUvarint(MaxCollectionCount + 1)
	if _, err := DecodeOps(e.Bytes()); !errors.Is(err, ErrCollectionTooLarge) {
		t.Errorf("err = %v, want ErrCollectionTooLarge", err)
	}
}

func TestDecoderLimits(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxAllocation + 1)
	d := NewDecoder(e.Bytes())
	if _, err := d.ReadString(); !errors.Is(err, ErrAllocationTooLarge) {
		t.Errorf("err = %v, want ErrAllocationTooLarge", err)
	}

	d = NewDecoder([]byte{2})
	if _, err := d.ReadBool(); !errors.Is(err, ErrInvalidBool) {
		t.Errorf("err = %v, want ErrInvalidBool", err)
	}
}

func TestSvarintZigZag(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -64, 1 << 20, -(1 << 20)} {
		e := NewEncoder()
		e.WriteSvarint(v)
		d := NewDecoder(e.Bytes())
		got, err := d.ReadSvarint()
		if err != nil {
			t.Fatalf("ReadSvarint(%d) error = %v", v, err)
		}
		if got != v {
			t.Errorf("svarint round trip %d -> %d", v, got)
		}
	}
}

func TestTypeStrings(t *testing.T) {
	if FrameEvent.String() != "Event" || FrameOps.String() != "Ops" || FrameControl.String() != "Control" {
		t.Error("FrameType.String() mismatch")
	}
	if EventLinkClicked.String() != "LinkClicked" || EventType(0xEE).String() != "Unknown" {
		t.Error("EventType.String() mismatch")
	}
	if OpScrollTo.String() != "ScrollTo" || OpType(0xEE).String() != "Unknown" {
		t.Error("OpType.String() mismatch")
	}
}
