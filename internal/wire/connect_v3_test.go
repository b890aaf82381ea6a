package wire

import (
	"bytes"
	"testing"
)

func TestConnectPacketV3Encoding(t *testing.T) {
	pkt := &ConnectPacket{
		ProtocolName: "MQTT",
		CleanSession: true,
		KeepAlive:    60,
		ClientID:     "test-client",
	}

	encoded := encodeToBytes(pkt)

	r := bytes.NewReader(encoded)
	header, err := DecodeFixedHeader(r)
	if err != nil {
		t.Fatalf("failed to decode header: %v", err)
	}

	remaining := make([]byte, header.RemainingLength)
	_, _ = r.Read(remaining)

	decoded, err := DecodeConnect(remaining)
	if err != nil {
		t.Fatalf("failed to decode: %v", err)
	}

	if decoded.ClientID != "test-client" {
		t.Errorf("client ID = %s, want test-client", decoded.ClientID)
	}

	t.Logf("Encoded CONNECT packet (%d bytes): %x", len(encoded), encoded)
}
