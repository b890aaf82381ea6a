// Package transport implements a synchronous, cooperative MQTT 3.1.1 client
// restricted to QoS 0: the subset a single-threaded device session needs to
// connect, subscribe, publish and receive inbound messages via a periodic
// Yield call, mirroring the "connect/subscribe/publish/yield/disconnect"
// MQTT collaborator a device client normally treats as external.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orange-lo/iotsoftbox-go/internal/wire"
)

// PublishHandler is invoked, on the caller's goroutine inside Yield, for
// every inbound PUBLISH frame.
type PublishHandler func(topic string, payload []byte)

// Client is a single MQTT 3.1.1 QoS 0 session. It is not safe for concurrent
// use: every method is expected to run on the same goroutine, matching the
// "session thread" the original device firmware dedicates to the MQTT link.
type Client struct {
	opts clientOptions
	log  *slog.Logger

	conn net.Conn

	clientID string
	connected atomic.Bool

	nextPacketID uint16

	onPublish PublishHandler

	lastActivity time.Time
	mu           sync.Mutex // guards conn during concurrent Disconnect from another goroutine
}

// Dial prepares a Client for the given broker address and client identifier.
// It does not open a network connection; call Connect for that. Splitting
// construction from connection lets the session controller redial the same
// Client repeatedly across a reconnect loop.
func Dial(addr, clientID string, opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		opts:     o,
		log:      o.Logger.With(slog.String("component", "transport"), slog.String("client_id", clientID)),
		clientID: clientID,
	}
}

// Connect dials the broker at addr (host:port), performs the TCP/TLS
// handshake if TLS is configured, sends CONNECT and waits for CONNACK.
func (c *Client) Connect(ctx context.Context, addr string) (sessionPresent bool, err error) {
	if c.connected.Load() {
		return false, ErrAlreadyConnected
	}

	dialer := &net.Dialer{Timeout: c.opts.ConnectTimeout}

	var conn net.Conn
	if c.opts.TLSConfig != nil {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: c.opts.TLSConfig}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return false, fmt.Errorf("transport: dial %s: %w", addr, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := conn.SetDeadline(time.Now().Add(c.opts.ConnectTimeout)); err != nil {
		c.closeConn()
		return false, fmt.Errorf("transport: set deadline: %w", err)
	}

	connect := &wire.ConnectPacket{
		ProtocolName: "MQTT",
		CleanSession: c.opts.CleanSession,
		KeepAlive:    uint16(c.opts.KeepAlive / time.Second),
		ClientID:     c.clientID,
		UsernameFlag: c.opts.Username != "",
		Username:     c.opts.Username,
		PasswordFlag: c.opts.Password != "",
		Password:     c.opts.Password,
	}
	if _, err := connect.WriteTo(conn); err != nil {
		c.closeConn()
		return false, fmt.Errorf("transport: send CONNECT: %w", err)
	}

	pkt, err := wire.ReadPacket(conn, c.opts.MaxIncomingPacket)
	if err != nil {
		c.closeConn()
		return false, fmt.Errorf("transport: read CONNACK: %w", err)
	}
	connack, ok := pkt.(*wire.ConnackPacket)
	if !ok {
		c.closeConn()
		return false, fmt.Errorf("transport: expected CONNACK, got packet type %d", pkt.Type())
	}
	if connack.ReturnCode != wire.ConnAccepted {
		c.closeConn()
		return false, &ConnectError{ReturnCode: connack.ReturnCode}
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		c.closeConn()
		return false, fmt.Errorf("transport: clear deadline: %w", err)
	}

	c.connected.Store(true)
	c.lastActivity = time.Now()
	c.log.Info("connected", slog.Bool("session_present", connack.SessionPresent))

	return connack.SessionPresent, nil
}

// SetPublishHandler registers the callback invoked for inbound PUBLISH
// frames. It must be called before the first Yield.
func (c *Client) SetPublishHandler(h PublishHandler) {
	c.onPublish = h
}

// SetFrameLogging adjusts frame logging verbosity at runtime, without
// requiring a fresh Dial.
func (c *Client) SetFrameLogging(mode FrameLogMode) {
	c.opts.FrameLogging = mode
}

// Publish sends a QoS 0 PUBLISH frame.
func (c *Client) Publish(topic string, payload []byte, retain bool) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	pkt := &wire.PublishPacket{Topic: topic, Payload: payload, Retain: retain}
	if _, err := pkt.WriteTo(c.conn); err != nil {
		return fmt.Errorf("transport: publish %s: %w", topic, err)
	}

	if c.opts.FrameLogging >= FrameLogHeaders {
		attrs := []any{slog.String("topic", topic), slog.Int("payload_len", len(payload))}
		if c.opts.FrameLogging >= FrameLogFull {
			attrs = append(attrs, slog.String("payload", string(payload)))
		}
		c.log.Debug("publish", attrs...)
	}

	return nil
}

// Subscribe sends a SUBSCRIBE frame for the given topics (always QoS 0) and
// waits for the matching SUBACK. It returns ErrSubscribeRejected if every
// topic came back refused (0x80).
func (c *Client) Subscribe(ctx context.Context, topics ...string) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	id := c.nextID()
	pkt := &wire.SubscribePacket{PacketID: id, Topics: topics}
	if _, err := pkt.WriteTo(c.conn); err != nil {
		return fmt.Errorf("transport: subscribe: %w", err)
	}

	suback, err := c.awaitSuback(ctx, id)
	if err != nil {
		return err
	}

	allRejected := true
	for _, code := range suback.ReturnCodes {
		if code != wire.SubackFailure {
			allRejected = false
			break
		}
	}
	if allRejected && len(suback.ReturnCodes) > 0 {
		return ErrSubscribeRejected
	}

	return nil
}

// Unsubscribe sends an UNSUBSCRIBE frame and waits for UNSUBACK.
func (c *Client) Unsubscribe(ctx context.Context, topics ...string) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	id := c.nextID()
	pkt := &wire.UnsubscribePacket{PacketID: id, Topics: topics}
	if _, err := pkt.WriteTo(c.conn); err != nil {
		return fmt.Errorf("transport: unsubscribe: %w", err)
	}

	return c.awaitUnsuback(ctx, id)
}

// Yield reads inbound frames for up to timeout, dispatching PUBLISH frames
// to the registered handler and sending a PINGREQ when the keepalive
// interval has elapsed since the last frame. It returns ErrYieldTimeout when
// nothing arrived, which callers should not treat as an error.
func (c *Client) Yield(timeout time.Duration) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	if idle := time.Since(c.lastActivity); idle >= c.opts.KeepAlive && c.opts.KeepAlive > 0 {
		if err := c.ping(); err != nil {
			return err
		}
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return fmt.Errorf("transport: set read deadline: %w", err)
	}

	pkt, err := wire.ReadPacket(c.conn, c.opts.MaxIncomingPacket)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return ErrYieldTimeout
		}
		return fmt.Errorf("transport: yield: %w", err)
	}

	c.lastActivity = time.Now()
	return c.dispatch(pkt)
}

func (c *Client) dispatch(pkt wire.Packet) error {
	switch p := pkt.(type) {
	case *wire.PublishPacket:
		if c.opts.FrameLogging >= FrameLogHeaders {
			attrs := []any{slog.String("topic", p.Topic), slog.Int("payload_len", len(p.Payload))}
			if c.opts.FrameLogging >= FrameLogFull {
				attrs = append(attrs, slog.String("payload", string(p.Payload)))
			}
			c.log.Debug("recv publish", attrs...)
		}
		if c.onPublish != nil {
			c.onPublish(p.Topic, p.Payload)
		}
	case *wire.PingrespPacket:
		// nothing to do: arrival alone refreshes lastActivity
	default:
		c.log.Warn("unexpected frame during yield", slog.String("type", wire.PacketNames[pkt.Type()]))
	}
	return nil
}

func (c *Client) ping() error {
	pkt := &wire.PingreqPacket{}
	if _, err := pkt.WriteTo(c.conn); err != nil {
		return fmt.Errorf("transport: ping: %w", err)
	}
	return nil
}

// Disconnect sends a DISCONNECT frame and closes the underlying connection.
func (c *Client) Disconnect() error {
	if !c.connected.CompareAndSwap(true, false) {
		return nil
	}

	pkt := &wire.DisconnectPacket{}
	_, werr := pkt.WriteTo(c.conn)
	cerr := c.closeConn()

	c.log.Info("disconnected")

	if werr != nil {
		return fmt.Errorf("transport: send DISCONNECT: %w", werr)
	}
	return cerr
}

// Connected reports whether Connect has succeeded and Disconnect has not
// since been called.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

func (c *Client) closeConn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) nextID() uint16 {
	c.nextPacketID++
	if c.nextPacketID == 0 {
		c.nextPacketID = 1
	}
	return c.nextPacketID
}

func (c *Client) awaitSuback(ctx context.Context, id uint16) (*wire.SubackPacket, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ConnectTimeout)); err != nil {
			return nil, fmt.Errorf("transport: set read deadline: %w", err)
		}
		pkt, err := wire.ReadPacket(c.conn, c.opts.MaxIncomingPacket)
		if err != nil {
			return nil, fmt.Errorf("transport: await SUBACK: %w", err)
		}
		c.lastActivity = time.Now()
		if suback, ok := pkt.(*wire.SubackPacket); ok && suback.PacketID == id {
			return suback, nil
		}
		if err := c.dispatch(pkt); err != nil {
			return nil, err
		}
	}
}

func (c *Client) awaitUnsuback(ctx context.Context, id uint16) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ConnectTimeout)); err != nil {
			return fmt.Errorf("transport: set read deadline: %w", err)
		}
		pkt, err := wire.ReadPacket(c.conn, c.opts.MaxIncomingPacket)
		if err != nil {
			return fmt.Errorf("transport: await UNSUBACK: %w", err)
		}
		c.lastActivity = time.Now()
		if unsuback, ok := pkt.(*wire.UnsubackPacket); ok && unsuback.PacketID == id {
			return nil
		}
		if err := c.dispatch(pkt); err != nil {
			return err
		}
	}
}
