package protocol

import (
	"errors"
	"fmt"
	"io"
)

// FrameType identifies the kind of message.
type FrameType uint8

const (
	FrameEvent   FrameType = 0x01 // Client → Server
	FrameOps     FrameType = 0x02 // Server → Client
	FrameControl FrameType = 0x03 // Ping/pong
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameEvent:
		return "Event"
	case FrameOps:
		return "Ops"
	case FrameControl:
		return "Control"
	default:
		return "Unknown"
	}
}

// ErrUnknownFrame is returned for an unrecognized frame type byte.
var ErrUnknownFrame = errors.New("protocol: unknown frame type")

// =============================================================================
// Client → Server Events
// =============================================================================

// EventType identifies a client navigation event.
type EventType uint8

const (
	// EventLinkClicked reports a user click on a link. External links
	// (different origin or explicit opt-out) carry External=true.
	EventLinkClicked EventType = 0x01

	// EventURLChanged reports that the active location changed: the
	// client performed a pushState/replaceState, or the user pressed
	// back/forward.
	EventURLChanged EventType = 0x02

	// EventViewport is the reply to OpGetViewport.
	EventViewport EventType = 0x03
)

// String returns the string representation of the event type.
func (et EventType) String() string {
	switch et {
	case EventLinkClicked:
		return "LinkClicked"
	case EventURLChanged:
		return "URLChanged"
	case EventViewport:
		return "Viewport"
	default:
		return "Unknown"
	}
}

// Event is a client → server navigation event.
type Event struct {
	Type     EventType
	Href     string // LinkClicked, URLChanged
	External bool   // LinkClicked
	GrabID   uint64 // Viewport: correlation id from OpGetViewport
	X        int    // Viewport
	Y        int    // Viewport
}

// EncodeEvent encodes an event into a complete frame.
func EncodeEvent(ev *Event) []byte {
	e := NewEncoder()
	e.WriteByte(byte(FrameEvent))
	e.WriteByte(byte(ev.Type))

	switch ev.Type {
	case EventLinkClicked:
		e.WriteString(ev.Href)
		e.WriteBool(ev.External)
	case EventURLChanged:
		e.WriteString(ev.Href)
	case EventViewport:
		e.WriteUvarint(ev.GrabID)
		e.WriteSvarint(int64(ev.X))
		e.WriteSvarint(int64(ev.Y))
	}
	return e.Bytes()
}

// DecodeEvent decodes an event frame.
func DecodeEvent(buf []byte) (*Event, error) {
	d := NewDecoder(buf)

	ft, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if FrameType(ft) != FrameEvent {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownFrame, ft)
	}

	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	ev := &Event{Type: EventType(t)}

	switch ev.Type {
	case EventLinkClicked:
		if ev.Href, err = d.ReadString(); err != nil {
			return nil, err
		}
		if ev.External, err = d.ReadBool(); err != nil {
			return nil, err
		}
	case EventURLChanged:
		if ev.Href, err = d.ReadString(); err != nil {
			return nil, err
		}
	case EventViewport:
		if ev.GrabID, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
		x, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		y, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		ev.X, ev.Y = int(x), int(y)
	default:
		return nil, fmt.Errorf("protocol: unknown event type 0x%02x", t)
	}
	return ev, nil
}

// =============================================================================
// Server → Client Ops
// =============================================================================

// OpType identifies a server navigation command.
type OpType uint8

const (
	OpNavPush     OpType = 0x01 // Push URL onto history
	OpNavReplace  OpType = 0x02 // Replace current history entry
	OpLeaveApp    OpType = 0x03 // Full navigation (location.assign)
	OpScrollTo    OpType = 0x04 // Restore scroll offset
	OpGetViewport OpType = 0x05 // Report current scroll offset
	OpSetTitle    OpType = 0x06 // Set document title
	OpRenderHTML  OpType = 0x07 // Swap the page container's HTML
)

// String returns the string representation of the op type.
func (ot OpType) String() string {
	switch ot {
	case OpNavPush:
		return "NavPush"
	case OpNavReplace:
		return "NavReplace"
	case OpLeaveApp:
		return "LeaveApp"
	case OpScrollTo:
		return "ScrollTo"
	case OpGetViewport:
		return "GetViewport"
	case OpSetTitle:
		return "SetTitle"
	case OpRenderHTML:
		return "RenderHTML"
	default:
		return "Unknown"
	}
}

// Op is a server → client navigation command.
type Op struct {
	Type   OpType
	URL    string // NavPush, NavReplace, LeaveApp
	X      int    // ScrollTo
	Y      int    // ScrollTo
	GrabID uint64 // GetViewport
	Title  string // SetTitle
	HTML   string // RenderHTML
}

// NewNavPushOp creates a push op.
func NewNavPushOp(url string) Op {
	return Op{Type: OpNavPush, URL: url}
}

// NewNavReplaceOp creates a replace op.
func NewNavReplaceOp(url string) Op {
	return Op{Type: OpNavReplace, URL: url}
}

// NewLeaveAppOp creates a leave-app op.
func NewLeaveAppOp(url string) Op {
	return Op{Type: OpLeaveApp, URL: url}
}

// NewScrollToOp creates a scroll restore op.
func NewScrollToOp(x, y int) Op {
	return Op{Type: OpScrollTo, X: x, Y: y}
}

// NewGetViewportOp creates a viewport request op.
func NewGetViewportOp(grabID uint64) Op {
	return Op{Type: OpGetViewport, GrabID: grabID}
}

// NewSetTitleOp creates a title op.
func NewSetTitleOp(title string) Op {
	return Op{Type: OpSetTitle, Title: title}
}

// NewRenderHTMLOp creates a layout swap op.
func NewRenderHTMLOp(html string) Op {
	return Op{Type: OpRenderHTML, HTML: html}
}

// EncodeOps encodes a batch of ops into a complete frame.
func EncodeOps(ops []Op) []byte {
	e := NewEncoder()
	e.WriteByte(byte(FrameOps))
	e.WriteUvarint(uint64(len(ops)))
	for i := range ops {
		encodeOp(e, &ops[i])
	}
	return e.Bytes()
}

func encodeOp(e *Encoder, op *Op) {
	e.WriteByte(byte(op.Type))
	switch op.Type {
	case OpNavPush, OpNavReplace, OpLeaveApp:
		e.WriteString(op.URL)
	case OpScrollTo:
		e.WriteSvarint(int64(op.X))
		e.WriteSvarint(int64(op.Y))
	case OpGetViewport:
		e.WriteUvarint(op.GrabID)
	case OpSetTitle:
		e.WriteString(op.Title)
	case OpRenderHTML:
		e.WriteString(op.HTML)
	}
}

// DecodeOps decodes an ops frame.
func DecodeOps(buf []byte) ([]Op, error) {
	d := NewDecoder(buf)

	ft, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if FrameType(ft) != FrameOps {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownFrame, ft)
	}

	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}

	ops := make([]Op, 0, count)
	for i := 0; i < count; i++ {
		op, err := decodeOp(d)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if !d.EOF() {
		return nil, io.ErrUnexpectedEOF
	}
	return ops, nil
}

func decodeOp(d *Decoder) (Op, error) {
	t, err := d.ReadByte()
	if err != nil {
		return Op{}, err
	}
	op := Op{Type: OpType(t)}

	switch op.Type {
	case OpNavPush, OpNavReplace, OpLeaveApp:
		if op.URL, err = d.ReadString(); err != nil {
			return Op{}, err
		}
	case OpScrollTo:
		x, err := d.ReadSvarint()
		if err != nil {
			return Op{}, err
		}
		y, err := d.ReadSvarint()
		if err != nil {
			return Op{}, err
		}
		op.X, op.Y = int(x), int(y)
	case OpGetViewport:
		if op.GrabID, err = d.ReadUvarint(); err != nil {
			return Op{}, err
		}
	case OpSetTitle:
		if op.Title, err = d.ReadString(); err != nil {
			return Op{}, err
		}
	case OpRenderHTML:
		if op.HTML, err = d.ReadString(); err != nil {
			return Op{}, err
		}
	default:
		return Op{}, fmt.Errorf("protocol: unknown op type 0x%02x", t)
	}
	return op, nil
}
