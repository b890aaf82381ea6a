package wire

import (
	"io"
)

// PingreqPacket represents an MQTT PINGREQ control packet. Fixed header
// only, no variable header or payload, per MQTT 3.1.1 §3.13 — the transport
// client's Yield sends one once a keepalive interval has passed without an
// inbound frame, to hold the connection open.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() uint8 {
	return PINGREQ
}

// WriteTo writes the PINGREQ packet to the writer.
func (p *PingreqPacket) WriteTo(w io.Writer) (int64, error) {
	header := &FixedHeader{
		PacketType:      PINGREQ,
		Flags:           0,
		RemainingLength: 0,
	}

	return header.WriteTo(w)
}

// DecodePingreq decodes a PINGREQ packet (no payload).
func DecodePingreq(buf []byte) (*PingreqPacket, error) {
	return &PingreqPacket{}, nil
}
