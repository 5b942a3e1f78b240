package buttplug

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Default timeouts and buffer sizes.
const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultRequestTimeout   = 5 * time.Second

	// eventBufferSize is the event channel buffer. It absorbs bursts
	// such as the initial device list replay; when full, senders block
	// until the consumer catches up rather than dropping registrations.
	eventBufferSize = 32

	// minPingInterval floors the ping loop so a tiny advertised
	// MaxPingTime cannot spin the connection.
	minPingInterval = 500 * time.Millisecond
)

// Logger interface for optional logging support.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config holds client connection settings.
type Config struct {
	// URL is the server websocket endpoint (ws:// or wss://).
	URL string

	// ClientName is announced to the server during the handshake.
	ClientName string

	// HandshakeTimeout bounds dialing plus the protocol handshake.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// RequestTimeout bounds each request/response exchange.
	// Default: 5 seconds.
	RequestTimeout time.Duration
}

// Client is a Buttplug-protocol device session over a websocket.
//
// One Client represents one connection attempt: after the connection
// fails or the server goes away, the Client is spent and a new one must
// be created. The event channel exists from construction, so callers can
// hold the stream before Connect. Device-added events for devices the
// server already knows are never missed.
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	cfg Config

	conn    *websocket.Conn
	writeMu sync.Mutex

	nextID atomic.Uint32

	pendingMu sync.Mutex
	pending   map[uint32]chan *envelope

	// Event delivery coordinates with the channel close: senders
	// register under eventsMu and failConnection closes the channel
	// only after eventsClosed is set and all registered senders drain.
	events        chan Event
	eventsMu      sync.Mutex
	eventsClosed  bool
	eventSenders  sync.WaitGroup
	eventsDropped atomic.Uint64

	devicesMu sync.Mutex
	devices   map[uint32]*Device

	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	serverName  string
	maxPingTime time.Duration

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates a client for the given server. Call Connect to establish
// the session.
func New(cfg Config) *Client {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &Client{
		cfg:     cfg,
		pending: make(map[uint32]chan *envelope),
		events:  make(chan Event, eventBufferSize),
		devices: make(map[uint32]*Device),
		done:    make(chan struct{}),
	}
}

// SetLogger sets an optional logger for protocol diagnostics.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// Events returns the session event stream. The channel is closed when
// the session ends; an EventDisconnected event precedes the close when
// the server, rather than Close, ended it.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connect dials the server, performs the protocol handshake, starts the
// read and ping loops, and requests the server's current device list so
// pre-connected devices surface as added events.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.conn = conn

	if err := c.handshake(); err != nil {
		conn.Close()
		return err
	}

	c.connected.Store(true)
	go c.readLoop()
	if c.maxPingTime > 0 {
		go c.pingLoop()
	}

	if err := c.requestInitialDevices(ctx); err != nil {
		// Not fatal: scanning will still report devices as they appear.
		c.logWarn("initial device list request failed", "error", err)
	}

	return nil
}

// handshake exchanges RequestServerInfo/ServerInfo before the read loop
// exists, reading directly off the connection.
func (c *Client) handshake() error {
	id := c.nextID.Add(1)
	req := envelope{RequestServerInfo: &requestServerInfo{
		ID:             id,
		ClientName:     c.cfg.ClientName,
		MessageVersion: messageVersion,
	}}
	if err := c.write([]envelope{req}); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.HandshakeTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	defer c.conn.SetReadDeadline(time.Time{}) //nolint:errcheck // clearing deadline on a live conn

	for {
		var batch []envelope
		if err := c.conn.ReadJSON(&batch); err != nil {
			return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
		}
		for i := range batch {
			env := &batch[i]
			switch {
			case env.ServerInfo != nil:
				c.serverName = env.ServerInfo.ServerName
				c.maxPingTime = time.Duration(env.ServerInfo.MaxPingTime) * time.Millisecond
				c.logDebug("handshake complete",
					"server", c.serverName,
					"message_version", env.ServerInfo.MessageVersion,
					"max_ping_time", c.maxPingTime,
				)
				return nil
			case env.Error != nil:
				return fmt.Errorf("%w: %s", ErrHandshakeFailed, env.Error.ErrorMessage)
			}
		}
	}
}

// requestInitialDevices asks for the server's device list and emits an
// added event per device.
func (c *Client) requestInitialDevices(ctx context.Context) error {
	resp, err := c.sendRequest(ctx, func(id uint32) envelope {
		return envelope{RequestDeviceList: &idMessage{ID: id}}
	})
	if err != nil {
		return err
	}
	if resp.DeviceList == nil {
		return fmt.Errorf("%w: unexpected device list response", ErrServerError)
	}
	for _, info := range resp.DeviceList.Devices {
		c.addDevice(info)
	}
	return nil
}

// StartScanning asks the server to begin device discovery.
func (c *Client) StartScanning(ctx context.Context) error {
	_, err := c.sendRequest(ctx, func(id uint32) envelope {
		return envelope{StartScanning: &idMessage{ID: id}}
	})
	if err != nil {
		return fmt.Errorf("start scanning: %w", err)
	}
	return nil
}

// StopScanning asks the server to stop device discovery.
func (c *Client) StopScanning(ctx context.Context) error {
	_, err := c.sendRequest(ctx, func(id uint32) envelope {
		return envelope{StopScanning: &idMessage{ID: id}}
	})
	if err != nil {
		return fmt.Errorf("stop scanning: %w", err)
	}
	return nil
}

// StopAllDevices halts every device the server manages.
func (c *Client) StopAllDevices(ctx context.Context) error {
	_, err := c.sendRequest(ctx, func(id uint32) envelope {
		return envelope{StopAllDevices: &idMessage{ID: id}}
	})
	if err != nil {
		return fmt.Errorf("stop all devices: %w", err)
	}
	return nil
}

// Connected reports whether the session is currently established.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// ServerName returns the name the server announced during the handshake.
func (c *Client) ServerName() string {
	return c.serverName
}

// EventsDropped returns the number of events discarded because the
// connection was already closing when they arrived.
func (c *Client) EventsDropped() uint64 {
	return c.eventsDropped.Load()
}

// Close tears down the connection. Safe to call multiple times and
// concurrently with a failing read loop.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.connected.Store(false)
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
	return nil
}

// sendRequest writes one request built with a fresh correlation ID and
// waits for the matching response.
func (c *Client) sendRequest(ctx context.Context, build func(id uint32) envelope) (*envelope, error) {
	select {
	case <-c.done:
		return nil, ErrConnectionClosed
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan *envelope, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.write([]envelope{build(id)}); err != nil {
		return nil, err
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrServerError, resp.Error.ErrorMessage)
		}
		return resp, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrConnectionClosed
	}
}

// write serialises one batch of envelopes onto the connection.
func (c *Client) write(batch []envelope) error {
	if c.conn == nil {
		return ErrConnectionClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(batch); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}

// readLoop consumes server messages until the connection fails, then
// emits a disconnect event and closes the event stream. It is the sole
// closer of the events channel.
func (c *Client) readLoop() {
	for {
		var batch []envelope
		if err := c.conn.ReadJSON(&batch); err != nil {
			c.failConnection(err)
			return
		}
		for i := range batch {
			c.handleEnvelope(&batch[i])
		}
	}
}

// handleEnvelope routes one server message: correlated responses to
// their waiters, device events to the event stream.
func (c *Client) handleEnvelope(env *envelope) {
	if id, ok := env.responseID(); ok {
		c.pendingMu.Lock()
		ch, waiting := c.pending[id]
		c.pendingMu.Unlock()
		if waiting {
			ch <- env
			return
		}
		// A response nobody waits for: the waiter timed out.
		c.logDebug("uncorrelated response", "id", id)
		return
	}

	switch {
	case env.DeviceAdded != nil:
		c.addDevice(env.DeviceAdded.deviceInfo)
	case env.DeviceRemoved != nil:
		c.removeDevice(env.DeviceRemoved.DeviceIndex)
	case env.ScanningFinished != nil:
		c.emit(Event{Kind: EventScanningFinished})
	case env.Error != nil:
		c.logWarn("server error", "message", env.Error.ErrorMessage, "code", env.Error.ErrorCode)
	}
}

// addDevice tracks a device and emits the added event.
func (c *Client) addDevice(info deviceInfo) {
	dev := newDevice(c, info)

	c.devicesMu.Lock()
	c.devices[info.DeviceIndex] = dev
	c.devicesMu.Unlock()

	c.emit(Event{Kind: EventDeviceAdded, Device: dev})
}

// removeDevice drops a tracked device and emits the removed event.
// The handle itself stays valid for anyone still holding it; commands
// against it will fail at the server.
func (c *Client) removeDevice(index uint32) {
	c.devicesMu.Lock()
	dev := c.devices[index]
	delete(c.devices, index)
	c.devicesMu.Unlock()

	c.emit(Event{Kind: EventDeviceRemoved, Device: dev})
}

// emit delivers an event. Sends block until the consumer takes the
// event (the session manager is a dedicated consumer), so device
// registrations are never lost to a full buffer. Events arriving once
// the session is over are dropped and counted; the closed event channel
// itself carries the end-of-session signal.
func (c *Client) emit(ev Event) {
	c.eventsMu.Lock()
	if c.eventsClosed {
		c.eventsMu.Unlock()
		c.eventsDropped.Add(1)
		return
	}
	c.eventSenders.Add(1)
	c.eventsMu.Unlock()
	defer c.eventSenders.Done()

	select {
	case c.events <- ev:
	case <-c.done:
		c.eventsDropped.Add(1)
	}
}

// failConnection marks the session dead and closes the event stream.
// Connect may still be replaying the initial device list on its own
// goroutine, so the close waits for every in-flight emit to finish.
func (c *Client) failConnection(err error) {
	wasConnected := c.connected.Load()
	c.Close()
	if wasConnected {
		// Best-effort: the channel close below signals the end too.
		select {
		case c.events <- Event{Kind: EventDisconnected, Err: err}:
		default:
		}
	}

	c.eventsMu.Lock()
	c.eventsClosed = true
	c.eventsMu.Unlock()
	c.eventSenders.Wait()
	close(c.events)
}

// pingLoop keeps the session alive per the server's MaxPingTime.
func (c *Client) pingLoop() {
	interval := c.maxPingTime / 2
	if interval < minPingInterval {
		interval = minPingInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.RequestTimeout)
			_, err := c.sendRequest(ctx, func(id uint32) envelope {
				return envelope{Ping: &idMessage{ID: id}}
			})
			cancel()
			if err != nil {
				// The read loop notices a genuinely dead connection.
				c.logWarn("ping failed", "error", err)
			}
		}
	}
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

func (c *Client) logDebug(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Debug(msg, args...)
	}
}

func (c *Client) logWarn(msg string, args ...any) {
	if logger := c.getLogger(); logger != nil {
		logger.Warn(msg, args...)
	}
}
