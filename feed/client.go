package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pickpath/models"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the service.
	writeWait = 2 * time.Second
	// Maximum message size accepted from the service; paths can be long.
	maxMessageSize = 1 << 20
	// DefaultReconnect is the delay between connection attempts.
	DefaultReconnect = 2 * time.Second
)

// ErrNotConnected is returned by Send while no connection to the service is up.
var ErrNotConnected = errors.New("order feed not connected")

// Recorder is notified of feed events, e.g. for metrics.
type Recorder interface {
	OrderReceived()
	OrderDropped(err error)
	FeedConnected()
}

type nopRecorder struct{}

func (nopRecorder) OrderReceived()     {}
func (nopRecorder) OrderDropped(error) {}
func (nopRecorder) FeedConnected()     {}

// Options configures a Client.
type Options struct {
	URL       string
	AuthToken string
	// Reconnect is the delay between connection attempts; zero means DefaultReconnect.
	Reconnect time.Duration
}

// Client keeps a connection to the order service open, reconnecting as needed, and passes
// each decoded order to a handler. Messages that do not decode are logged and dropped.
type Client struct {
	opts     Options
	dialer   *websocket.Dialer
	onOrder  func(models.Order)
	recorder Recorder
	logger   *slog.Logger

	// Guards conn and serializes writes on it.
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient returns a client; recorder may be nil.
func NewClient(
	opts Options,
	onOrder func(models.Order),
	recorder Recorder,
	logger *slog.Logger,
) *Client {
	if opts.Reconnect <= 0 {
		opts.Reconnect = DefaultReconnect
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Client{
		opts:     opts,
		dialer:   websocket.DefaultDialer,
		onOrder:  onOrder,
		recorder: recorder,
		logger:   logger.With("feed", opts.URL),
	}
}

// Run connects and reads orders until ctx is done, reconnecting after every failure.
// It returns nil once ctx is done.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("order feed disconnected", "err", err, "retry", c.opts.Reconnect)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.opts.Reconnect):
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.recorder.FeedConnected()
	c.logger.Info("order feed connected")

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-groupCtx.Done()
		// Unblocks the reader.
		return conn.Close()
	})
	group.Go(func() error {
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			c.handle(msg)
		}
	})
	return group.Wait()
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", c.opts.URL, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

func (c *Client) handle(msg []byte) {
	order, err := Decode(msg)
	switch {
	case err == nil:
		c.recorder.OrderReceived()
		c.onOrder(order)
	case errors.Is(err, ErrNotARequest):
		c.recorder.OrderDropped(err)
		if answer, ok := decodeAnswer(msg); ok {
			c.logger.Info("order service answered", "answer", answer.String())
			return
		}
		c.logger.Debug("ignoring feed message", "err", err)
	default:
		c.recorder.OrderDropped(err)
		c.logger.Warn("dropping feed message", "err", err)
	}
}

// Send writes a command on the current connection. The command's auth is filled from the
// options if empty.
func (c *Client) Send(cmd Command) error {
	if cmd.Auth == "" {
		cmd.Auth = c.opts.AuthToken
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	return writeCommand(c.conn, cmd)
}

func writeCommand(conn *websocket.Conn, cmd Command) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}
	return nil
}

// SendOnce dials the service, sends one command and waits for its answer. Requests and
// other pushed messages received meanwhile are skipped.
func SendOnce(ctx context.Context, opts Options, cmd Command) (Answer, error) {
	if cmd.Auth == "" {
		cmd.Auth = opts.AuthToken
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, opts.URL, nil)
	if err != nil {
		if resp != nil {
			return Answer{}, fmt.Errorf("dial %s: %s: %w", opts.URL, resp.Status, err)
		}
		return Answer{}, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := writeCommand(conn, cmd); err != nil {
		return Answer{}, err
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return Answer{}, ctx.Err()
			}
			return Answer{}, fmt.Errorf("await answer: %w", err)
		}
		if answer, ok := decodeAnswer(msg); ok {
			return answer, nil
		}
	}
}
