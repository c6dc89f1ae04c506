// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luxfi/bidagent/pkg/log"
	"github.com/luxfi/bidagent/pkg/protocol"
	"github.com/luxfi/bidagent/pkg/rtb"
)

// Outbound codecs
const (
	CodecNative  = "native"
	CodecOpenRTB = "openrtb"
)

// KindRegister is the first envelope the agent sends after connecting
const KindRegister protocol.Kind = "register"

var (
	ErrNotConnected = errors.New("websocket not connected")
	ErrUnknownCodec = errors.New("unknown bundle codec")
)

// Handler consumes inbound messages one at a time
type Handler interface {
	HandleMessage(ctx context.Context, m protocol.Message) error
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, m protocol.Message) error

// HandleMessage calls f
func (f HandlerFunc) HandleMessage(ctx context.Context, m protocol.Message) error {
	return f(ctx, m)
}

// Config is the simulation server connection
type Config struct {
	URL          string
	AgentName    string
	Codec        string
	WriteTimeout time.Duration
	Header       http.Header
}

type registration struct {
	AgentName string `json:"agent_name"`
	Codec     string `json:"codec"`
}

// NewEncoder returns the bundle encoder for codec
func NewEncoder(codec, seat string) (protocol.BundleEncoder, error) {
	switch codec {
	case "", CodecNative:
		return protocol.NativeEncoder{}, nil
	case CodecOpenRTB:
		return rtb.NewEncoder(seat), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, codec)
	}
}

// Client is a websocket session with the simulation server. Reads happen
// on the Run goroutine; writes are serialized.
type Client struct {
	cfg     Config
	encoder protocol.BundleEncoder
	log     log.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn
}

// Dial connects to the simulation server and registers the agent
func Dial(ctx context.Context, cfg Config, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.NoOp()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	encoder, err := NewEncoder(cfg.Codec, cfg.AgentName)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.URL, cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.URL, err)
	}

	c := &Client{
		cfg:     cfg,
		encoder: encoder,
		log:     logger.With(log.String("server", cfg.URL)),
		conn:    conn,
	}

	payload, err := json.Marshal(registration{AgentName: cfg.AgentName, Codec: cfg.Codec})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := c.write(ctx, protocol.Envelope{Type: KindRegister, Payload: payload}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("register agent: %w", err)
	}

	c.log.Info("connected to simulation server", log.String("agent", cfg.AgentName))
	return c, nil
}

// Run reads envelopes until the server closes the session or ctx is done.
// Undecodable envelopes are logged and skipped.
func (c *Client) Run(ctx context.Context, h Handler) error {
	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Info("simulation server closed the session")
				return nil
			}
			return fmt.Errorf("read envelope: %w", err)
		}

		msg, err := protocol.DecodeMessage(env)
		if err != nil {
			c.log.Warn("skipping envelope", log.String("type", string(env.Type)), log.Error(err))
			continue
		}
		if err := h.HandleMessage(ctx, msg); err != nil {
			c.log.Error("failed to handle message", log.String("type", string(env.Type)), log.Error(err))
		}
	}
}

// Publish implements protocol.Publisher by writing a bid_bundle envelope
func (c *Client) Publish(ctx context.Context, address string, bundle *protocol.BidBundle) error {
	if address == "" {
		return protocol.ErrNoPublisher
	}
	payload, err := c.encoder.EncodeBundle(address, bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	return c.write(ctx, protocol.Envelope{Type: protocol.KindBidBundle, Payload: payload})
}

func (c *Client) write(ctx context.Context, env protocol.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	deadline := time.Now().Add(c.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

// Close sends a close frame and closes the connection
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

var _ protocol.Publisher = (*Client)(nil)
