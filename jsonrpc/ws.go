package jsonrpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/armon/go-metrics"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultMaxRequestSize matches the node's default RPC request limit
	DefaultMaxRequestSize = 15 * 1024 * 1024

	defaultDialRetries  = 3
	defaultDialBackoff  = 200 * time.Millisecond
	unsubscribeTimeout  = 5 * time.Second
	closeMessageTimeout = time.Second
)

type WSOption func(*WSTransport)

func WithWSLogger(logger hclog.Logger) WSOption {
	return func(t *WSTransport) {
		t.logger = logger
	}
}

// WithMaxRequestSize rejects larger requests locally with ErrRequestTooLarge.
// Zero disables the check.
func WithMaxRequestSize(size int) WSOption {
	return func(t *WSTransport) {
		t.maxRequestSize = size
	}
}

func WithDialRetries(retries uint64) WSOption {
	return func(t *WSTransport) {
		t.dialRetries = retries
	}
}

func WithHeaders(headers http.Header) WSOption {
	return func(t *WSTransport) {
		t.headers = headers
	}
}

type callResult struct {
	resp *Response
	sub  *Subscription
	err  error
}

type pendingCall struct {
	method string
	// unsubscribe is set for subscription requests
	unsubscribe string
	ch          chan callResult
}

// WSTransport multiplexes calls and subscriptions over one websocket. Concurrent
// calls only share the write lock; replies are routed by request id.
type WSTransport struct {
	url            string
	headers        http.Header
	logger         hclog.Logger
	maxRequestSize int
	dialRetries    uint64

	conn      *websocket.Conn
	seq       uint64
	writeLock sync.Mutex

	lock    sync.Mutex
	pending map[uint64]*pendingCall
	subs    map[string]*Subscription

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// DialWS connects to a node websocket endpoint, retrying the dial with
// exponential backoff
func DialWS(ctx context.Context, url string, opts ...WSOption) (*WSTransport, error) {
	t := &WSTransport{
		url:            url,
		logger:         hclog.NewNullLogger(),
		maxRequestSize: DefaultMaxRequestSize,
		dialRetries:    defaultDialRetries,
		pending:        map[uint64]*pendingCall{},
		subs:           map[string]*Subscription{},
		closeCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(t)
	}

	t.logger = t.logger.Named("jsonrpc-ws")

	backoff := retry.WithMaxRetries(t.dialRetries, retry.NewExponential(defaultDialBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, t.headers)
		if err != nil {
			t.logger.Debug("dial failed", "url", url, "err", err)

			// a handshake refused by the server will not succeed on retry
			if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return err
			}

			return retry.RetryableError(err)
		}

		t.conn = conn

		return nil
	})
	if err != nil {
		return nil, communicationError("dial "+url, err)
	}

	go t.readLoop()

	t.logger.Info("websocket connection established", "url", url)

	return t, nil
}

func (t *WSTransport) register(method, unsubscribe string) (uint64, *pendingCall, error) {
	id := atomic.AddUint64(&t.seq, 1)
	pc := &pendingCall{method: method, unsubscribe: unsubscribe, ch: make(chan callResult, 1)}

	t.lock.Lock()
	defer t.lock.Unlock()

	select {
	case <-t.closeCh:
		return 0, nil, communicationError(method, t.closeErr)
	default:
	}

	t.pending[id] = pc

	return id, pc, nil
}

// unregister reports whether the call was still waiting for its reply
func (t *WSTransport) unregister(id uint64) bool {
	t.lock.Lock()
	defer t.lock.Unlock()

	_, ok := t.pending[id]
	delete(t.pending, id)

	return ok
}

func (t *WSTransport) write(ctx context.Context, data []byte) error {
	t.writeLock.Lock()
	defer t.writeLock.Unlock()

	deadline, _ := ctx.Deadline()
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) roundTrip(
	ctx context.Context,
	method, unsubscribe string,
	params []interface{},
) (callResult, error) {
	id, pc, err := t.register(method, unsubscribe)
	if err != nil {
		return callResult{}, err
	}

	data, err := json.Marshal(newRequest(id, method, params))
	if err != nil {
		t.unregister(id)

		return callResult{}, fmt.Errorf("encode %s request: %w", method, err)
	}

	if t.maxRequestSize > 0 && len(data) > t.maxRequestSize {
		t.unregister(id)

		return callResult{}, fmt.Errorf("%s: %w: %d > %d bytes", method, ErrRequestTooLarge, len(data), t.maxRequestSize)
	}

	metrics.IncrCounter([]string{"jsonrpc", "requests"}, 1)

	if err := t.write(ctx, data); err != nil {
		t.unregister(id)

		return callResult{}, communicationError(method, err)
	}

	select {
	case res := <-pc.ch:
		return res, res.err
	case <-ctx.Done():
		if !t.unregister(id) {
			// the reply raced the cancellation; release what it opened
			if res := <-pc.ch; res.sub != nil {
				_ = res.sub.Close()
			}
		}

		return callResult{}, ctx.Err()
	}
}

func (t *WSTransport) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	res, err := t.roundTrip(ctx, method, "", params)
	if err != nil {
		return err
	}

	if res.resp.Error != nil {
		return classifyErrorObject(method, res.resp.Error)
	}

	return decodeResult(res.resp.Result, out)
}

func (t *WSTransport) Subscribe(
	ctx context.Context,
	method, unsubscribe string,
	params ...interface{},
) (*Subscription, error) {
	res, err := t.roundTrip(ctx, method, unsubscribe, params)
	if err != nil {
		return nil, err
	}

	if res.resp.Error != nil {
		return nil, classifyErrorObject(method, res.resp.Error)
	}

	if res.sub == nil {
		return nil, communicationError(method, errors.New("subscription id missing from reply"))
	}

	metrics.IncrCounter([]string{"jsonrpc", "subscriptions"}, 1)

	return res.sub, nil
}

func (t *WSTransport) readLoop() {
	for {
		_, msg, err := t.conn.ReadMessage()
		if err != nil {
			t.shutdown(err)

			return
		}

		t.handleMessage(msg)
	}
}

func (t *WSTransport) handleMessage(msg []byte) {
	var resp Response
	if err := json.Unmarshal(msg, &resp); err != nil {
		t.logger.Error("unable to decode message", "err", err)

		return
	}

	if resp.Method != "" && resp.Params != nil {
		t.lock.Lock()
		sub, ok := t.subs[resp.Params.Subscription]
		t.lock.Unlock()

		if !ok {
			t.logger.Debug("notification for unknown subscription", "id", resp.Params.Subscription)

			return
		}

		sub.push(resp.Params.Result)

		return
	}

	if resp.ID == nil {
		t.logger.Debug("message without id", "msg", string(msg))

		return
	}

	t.lock.Lock()
	pc, ok := t.pending[*resp.ID]
	delete(t.pending, *resp.ID)
	t.lock.Unlock()

	if !ok {
		t.logger.Debug("reply for unknown request", "id", *resp.ID)

		return
	}

	res := callResult{resp: &resp}

	// register before reading on, so no notification can arrive ahead of the subscription
	if pc.unsubscribe != "" && resp.Error == nil {
		var id string
		if err := decodeResult(resp.Result, &id); err != nil || id == "" {
			res.err = communicationError(pc.method, fmt.Errorf("invalid subscription id %s", string(resp.Result)))
		} else {
			res.sub = t.newSub(id, pc.unsubscribe)
		}
	}

	pc.ch <- res
}

func (t *WSTransport) newSub(id, unsubscribe string) *Subscription {
	sub := newSubscription(id, func() error {
		t.lock.Lock()
		delete(t.subs, id)
		t.lock.Unlock()

		select {
		case <-t.closeCh:
			return nil
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
		defer cancel()

		var ok bool

		return t.Call(ctx, unsubscribe, &ok, id)
	})

	t.lock.Lock()
	t.subs[id] = sub
	t.lock.Unlock()

	return sub
}

// shutdown fails every pending call and open subscription with the cause
func (t *WSTransport) shutdown(cause error) {
	t.closeOnce.Do(func() {
		if websocket.IsCloseError(cause, websocket.CloseMessageTooBig) {
			cause = fmt.Errorf("%w: %v", ErrRequestTooLarge, cause)
		}

		t.lock.Lock()
		t.closeErr = cause
		close(t.closeCh)

		pending := t.pending
		subs := t.subs
		t.pending = map[uint64]*pendingCall{}
		t.subs = map[string]*Subscription{}
		t.lock.Unlock()

		for _, pc := range pending {
			pc.ch <- callResult{err: communicationError(pc.method, cause)}
		}

		for _, sub := range subs {
			sub.fail(communicationError("subscription "+sub.ID, cause))
		}

		if !errors.Is(cause, ErrClosed) {
			t.logger.Warn("websocket connection lost", "err", cause)
		}
	})
}

// Close sends a close frame and tears the connection down
func (t *WSTransport) Close() error {
	var result *multierror.Error

	t.writeLock.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeMessageTimeout)); err != nil &&
		!errors.Is(err, websocket.ErrCloseSent) {
		result = multierror.Append(result, err)
	}
	t.writeLock.Unlock()

	t.shutdown(ErrClosed)

	if err := t.conn.Close(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}
