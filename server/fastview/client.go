package fastview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// The minimum spacing between two publications to a client. Updates arriving faster
	// are coalesced, not dropped.
	pubResolution  = time.Millisecond * 50
	pingResolution = time.Millisecond * 500
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
)

var upgrader = websocket.Upgrader{}

// MessageFunc handles a message sent by the page, e.g. a command typed or clicked by the user.
type MessageFunc func(msg []byte)

// Client publishes a hub subscription's element updates to one page over a websocket, and
// passes messages from the page to a handler.
type Client struct {
	sub       *Subscription
	ws        *websock
	rootCtx   context.Context
	onMessage MessageFunc
	logger    *slog.Logger
}

// NewClient upgrades the request to a websocket bound to sub. onMessage may be nil, in which
// case page messages are read and discarded.
func NewClient(
	sub *Subscription,
	w http.ResponseWriter,
	r *http.Request,
	onMessage MessageFunc,
	logger *slog.Logger,
) (*Client, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	if onMessage == nil {
		onMessage = func([]byte) {}
	}
	return &Client{
		sub:       sub,
		ws:        newWebSocket(ws),
		rootCtx:   r.Context(),
		onMessage: onMessage,
		logger:    logger,
	}, nil
}

// Sync runs the client until the peer disconnects, a liveness check fails, or the request
// context ends; then it closes the socket and the subscription. A normal closure by the
// peer returns nil.
func (cli *Client) Sync() error {
	ctx, cancel := context.WithCancel(cli.rootCtx)
	defer cancel()
	defer cli.sub.Close()

	group, groupCtx := errgroup.WithContext(ctx)
	// Any loop ending ends all of them.
	run := func(fn func(context.Context) error) func() error {
		return func() error {
			defer cancel()
			return fn(groupCtx)
		}
	}
	group.Go(run(cli.readMessages))
	group.Go(run(cli.pingPong))
	group.Go(run(cli.publish))
	group.Go(func() error {
		<-groupCtx.Done()
		cli.ws.Close()
		return nil
	})

	err := group.Wait()
	if isClosure(err) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

var ErrPongDeadlineExceeded error = errors.New("client disconnect, pong deadline exceeded")

// pingPong runs the liveness check. The pong handler is invoked from readMessages.
func (cli *Client) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			if err := cli.ping(ctx); err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

func (cli *Client) ping(ctx context.Context) error {
	return cli.ws.Write(
		ctx,
		func(ws *websocket.Conn) (err error) {
			if err = ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				err = fmt.Errorf("ping failed: %w", err)
			}
			return
		})
}

// readMessages passes page messages to the handler. Errors returned by websocket reads are
// permanent, hence any error must trigger full teardown.
func (cli *Client) readMessages(ctx context.Context) error {
	for ctx.Err() == nil {
		var msg []byte
		err := cli.ws.Read(
			ctx,
			func(ws *websocket.Conn) (readErr error) {
				_, msg, readErr = ws.ReadMessage()
				return
			})
		if err != nil {
			// Reads fail once teardown closes the socket.
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if msg != nil {
			cli.onMessage(msg)
		}
	}
	return nil
}

// publish writes pending updates, no more often than pubResolution.
func (cli *Client) publish(ctx context.Context) error {
	lastSync := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-cli.sub.Ready():
		}

		// Let further updates coalesce rather than flooding the page.
		if wait := pubResolution - time.Since(lastSync); wait > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
		}

		updates := cli.sub.Take()
		if len(updates) == 0 {
			continue
		}

		lastSync = time.Now()
		err := cli.ws.Write(
			ctx,
			func(ws *websocket.Conn) (writeErr error) {
				if writeErr = ws.SetWriteDeadline(time.Now().Add(writeWait)); writeErr != nil {
					return fmt.Errorf("failed to set deadline: %w", writeErr)
				}
				if writeErr = ws.WriteJSON(updates); writeErr != nil {
					writeErr = fmt.Errorf("publish failed: %w", writeErr)
				}
				return
			})
		if err != nil {
			return err
		}
		cli.logger.Debug("published view updates", "elements", len(updates))
	}
}

func isClosure(err error) bool {
	return err != nil && websocket.IsCloseError(
		err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

const (
	writeDeadline = time.Second
)

// websock serializes reads and writes to the websocket, whose requirements are that there
// may be only one concurrent reader and one concurrent writer at a time.
type websock struct {
	// These are merely mutexes, but channel semantics are cleaner.
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebSocket(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Returns the underlying websocket.
// This should only be used non-concurrently for setup, e.g. adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close frame, if the writer is free, and closes the connection. Closing the
// connection unblocks a pending read.
func (sock *websock) Close() {
	select {
	case sock.writeSem <- struct{}{}:
		_ = sock.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		<-sock.writeSem
	case <-time.After(writeDeadline):
	}
	sock.ws.Close()
}

// Read serializes read operations on the internal web socket. Only one reader is expected,
// so the read is never contended; a read blocks until a message arrives or the socket closes.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	}
}

// Write serializes write operations to the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(writeDeadline):
		return ErrSockCongestion
	}
}
