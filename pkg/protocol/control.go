package protocol

import "fmt"

// ControlType identifies a control message.
type ControlType uint8

const (
	// ControlPing is a server heartbeat. The client answers with a
	// pong carrying the same timestamp.
	ControlPing ControlType = 0x01

	// ControlPong is the client's heartbeat reply.
	ControlPong ControlType = 0x02
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	default:
		return "Unknown"
	}
}

// Control is a ping/pong heartbeat message.
type Control struct {
	Type      ControlType
	Timestamp uint64 // Sender's Unix milliseconds, echoed in the pong
}

// EncodeControl encodes a control message into a complete frame.
func EncodeControl(c *Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(FrameControl))
	e.WriteByte(byte(c.Type))
	e.WriteUvarint(c.Timestamp)
	return e.Bytes()
}

// DecodeControl decodes a control frame.
func DecodeControl(buf []byte) (*Control, error) {
	d := NewDecoder(buf)

	ft, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	if FrameType(ft) != FrameControl {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownFrame, ft)
	}

	t, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	c := &Control{Type: ControlType(t)}
	switch c.Type {
	case ControlPing, ControlPong:
		if c.Timestamp, err = d.ReadUvarint(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("protocol: unknown control type 0x%02x", t)
	}
	return c, nil
}
