package session

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/orange-lo/iotsoftbox-go/internal/wire"
	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/transport"
)

// acceptAndConnect accepts one connection on ln, completes the CONNECT
// handshake, and returns the broker-side conn for further scripting.
func acceptAndConnect(t *testing.T, ln net.Listener) net.Conn {
	t.Helper()
	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := wire.ReadPacket(conn, 0); err != nil {
		t.Fatalf("read CONNECT: %v", err)
	}
	connack := &wire.ConnackPacket{ReturnCode: wire.ConnAccepted}
	if _, err := connack.WriteTo(conn); err != nil {
		t.Fatalf("write CONNACK: %v", err)
	}
	return conn
}

func TestReconcileSubscriptionsIssuesSubscribeOnce(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverConnCh := make(chan net.Conn, 1)
	go func() { serverConnCh <- acceptAndConnect(t, ln) }()

	client := transport.Dial(ln.Addr().String(), "test-client")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Connect(ctx, ln.Addr().String()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Disconnect()

	serverConn := <-serverConnCh
	defer serverConn.Close()

	subsReceived := make(chan *wire.SubscribePacket, 4)
	go func() {
		for {
			pkt, err := wire.ReadPacket(serverConn, 0)
			if err != nil {
				return
			}
			sub, ok := pkt.(*wire.SubscribePacket)
			if !ok {
				continue
			}
			subsReceived <- sub
			suback := &wire.SubackPacket{PacketID: sub.PacketID, ReturnCodes: make([]uint8, len(sub.Topics))}
			suback.WriteTo(serverConn)
		}
	}()

	var flag registry.EnableFlag
	flag.RequestEnable()
	slots := [subCount]subscriptionSlot{{topic: topicCmd, flag: &flag}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	reconcileSubscriptions(ctx, client, slots, log)

	select {
	case <-subsReceived:
	case <-time.After(time.Second):
		t.Fatal("SUBSCRIBE not sent")
	}

	if !flag.Enabled() {
		t.Fatal("flag not confirmed enabled after SUBACK")
	}

	// A second reconcile pass with the flag already enabled must not send
	// another SUBSCRIBE.
	reconcileSubscriptions(ctx, client, slots, log)
	select {
	case <-subsReceived:
		t.Fatal("unexpected second SUBSCRIBE for an already-enabled slot")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconcileSubscriptionsIssuesUnsubscribe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverConnCh := make(chan net.Conn, 1)
	go func() { serverConnCh <- acceptAndConnect(t, ln) }()

	client := transport.Dial(ln.Addr().String(), "test-client")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Connect(ctx, ln.Addr().String()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Disconnect()

	serverConn := <-serverConnCh
	defer serverConn.Close()

	unsubReceived := make(chan *wire.UnsubscribePacket, 1)
	go func() {
		pkt, err := wire.ReadPacket(serverConn, 0)
		if err != nil {
			return
		}
		unsub, ok := pkt.(*wire.UnsubscribePacket)
		if !ok {
			return
		}
		unsubReceived <- unsub
		unsuback := &wire.UnsubackPacket{PacketID: unsub.PacketID}
		unsuback.WriteTo(serverConn)
	}()

	var flag registry.EnableFlag
	flag.RequestEnable()
	flag.ConfirmSubscribed()
	flag.RequestDisable()
	slots := [subCount]subscriptionSlot{{topic: topicRscUpd, flag: &flag}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	reconcileSubscriptions(ctx, client, slots, log)

	select {
	case <-unsubReceived:
	case <-time.After(time.Second):
		t.Fatal("UNSUBSCRIBE not sent")
	}
	if flag.Enabled() || flag.NeedsUnsubscribe() {
		t.Error("flag not confirmed disabled after UNSUBACK")
	}
}
