package tests

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RPCError is returned by handlers to reply with a jsonrpc error object
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HandlerFunc answers one request
type HandlerFunc func(params []jsoniter.RawMessage) (interface{}, error)

// SubscriptionFunc starts a subscription. Notifications sent before it returns
// are delivered after the reply carrying the subscription id.
type SubscriptionFunc func(params []jsoniter.RawMessage, sink *SubscriptionSink) error

type subscriptionHandler struct {
	notifyMethod string
	fn           SubscriptionFunc
}

type request struct {
	ID     uint64               `json:"id"`
	Method string               `json:"method"`
	Params []jsoniter.RawMessage `json:"params"`
}

type reply struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type notification struct {
	JSONRPC string             `json:"jsonrpc"`
	Method  string             `json:"method"`
	Params  notificationParams `json:"params"`
}

type notificationParams struct {
	Subscription string      `json:"subscription"`
	Result       interface{} `json:"result"`
}

// wsWrapper serializes writes to one connection
type wsWrapper struct {
	ws        *websocket.Conn
	writeLock sync.Mutex
}

func (w *wsWrapper) writeJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.writeLock.Lock()
	defer w.writeLock.Unlock()

	return w.ws.WriteMessage(websocket.TextMessage, data)
}

// SubscriptionSink pushes notifications of one subscription
type SubscriptionSink struct {
	ID string

	conn   *wsWrapper
	method string

	mu     sync.Mutex
	ready  bool
	closed bool
	buffer []interface{}
}

// Notify sends one notification, or queues it until the subscription reply is out
func (s *SubscriptionSink) Notify(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("subscription closed")
	}

	if !s.ready {
		s.buffer = append(s.buffer, v)

		return nil
	}

	return s.send(v)
}

func (s *SubscriptionSink) send(v interface{}) error {
	return s.conn.writeJSON(notification{
		JSONRPC: "2.0",
		Method:  s.method,
		Params:  notificationParams{Subscription: s.ID, Result: v},
	})
}

func (s *SubscriptionSink) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = true

	for _, v := range s.buffer {
		_ = s.send(v)
	}

	s.buffer = nil
}

// Closed reports whether the client unsubscribed
func (s *SubscriptionSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// MockNode is an in-process websocket and HTTP jsonrpc node
type MockNode struct {
	server *httptest.Server

	lock          sync.Mutex
	handlers      map[string]HandlerFunc
	subscriptions map[string]subscriptionHandler
	sinks         map[string]*SubscriptionSink
	conns         map[*wsWrapper]struct{}
	calls         map[string]int
	readLimit     int64
}

// NewMockNode starts a node that is shut down when the test ends
func NewMockNode(t testing.TB) *MockNode {
	t.Helper()

	m := &MockNode{
		handlers:      map[string]HandlerFunc{},
		subscriptions: map[string]subscriptionHandler{},
		sinks:         map[string]*SubscriptionSink{},
		conns:         map[*wsWrapper]struct{}{},
		calls:         map[string]int{},
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)

	return m
}

// URL is the websocket endpoint
func (m *MockNode) URL() string {
	return "ws" + strings.TrimPrefix(m.server.URL, "http")
}

// HTTPURL is the plain HTTP endpoint
func (m *MockNode) HTTPURL() string {
	return m.server.URL
}

func (m *MockNode) Handle(method string, fn HandlerFunc) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.handlers[method] = fn
}

// HandleResult answers method with a fixed result
func (m *MockNode) HandleResult(method string, result interface{}) {
	m.Handle(method, func([]jsoniter.RawMessage) (interface{}, error) {
		return result, nil
	})
}

// HandleSubscription registers a subscription method, the method name used by its
// notifications and the method that cancels it
func (m *MockNode) HandleSubscription(method, notifyMethod, unsubscribe string, fn SubscriptionFunc) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.subscriptions[method] = subscriptionHandler{notifyMethod: notifyMethod, fn: fn}
	m.handlers[unsubscribe] = m.unsubscribe
}

// SetReadLimit makes the node drop connections that send larger messages
func (m *MockNode) SetReadLimit(limit int64) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.readLimit = limit
}

// Calls is the number of requests received for method
func (m *MockNode) Calls(method string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.calls[method]
}

// Sink returns an open subscription by id
func (m *MockNode) Sink(id string) (*SubscriptionSink, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, ok := m.sinks[id]

	return s, ok
}

// DropConnections closes every websocket without a close frame
func (m *MockNode) DropConnections() {
	m.lock.Lock()
	conns := m.conns
	m.conns = map[*wsWrapper]struct{}{}
	m.lock.Unlock()

	for c := range conns {
		_ = c.ws.UnderlyingConn().Close()
	}
}

func (m *MockNode) Close() {
	m.DropConnections()
	m.server.Close()
}

func (m *MockNode) unsubscribe(params []jsoniter.RawMessage) (interface{}, error) {
	if len(params) != 1 {
		return nil, &RPCError{Code: -32602, Message: "invalid params"}
	}

	var id string
	if err := json.Unmarshal(params[0], &id); err != nil {
		return nil, &RPCError{Code: -32602, Message: err.Error()}
	}

	m.lock.Lock()
	sink, ok := m.sinks[id]
	delete(m.sinks, id)
	m.lock.Unlock()

	if !ok {
		return false, nil
	}

	sink.mu.Lock()
	sink.closed = true
	sink.mu.Unlock()

	return true, nil
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (m *MockNode) serve(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		m.serveWS(w, r)

		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	_ = json.NewEncoder(w).Encode(m.dispatch(&req))
}

func (m *MockNode) serveWS(w http.ResponseWriter, r *http.Request) {
	ws, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	conn := &wsWrapper{ws: ws}

	m.lock.Lock()
	m.conns[conn] = struct{}{}
	limit := m.readLimit
	m.lock.Unlock()

	if limit > 0 {
		ws.SetReadLimit(limit)
	}

	defer func() {
		m.lock.Lock()
		delete(m.conns, conn)
		m.lock.Unlock()

		_ = ws.Close()
	}()

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}

		var req request
		if err := json.Unmarshal(message, &req); err != nil {
			continue
		}

		m.lock.Lock()
		sub, isSub := m.subscriptions[req.Method]
		m.lock.Unlock()

		if !isSub {
			go func() {
				_ = conn.writeJSON(m.dispatch(&req))
			}()

			continue
		}

		// subscriptions are handled inline so their notifications keep request order
		m.subscribe(conn, &req, sub)
	}
}

func (m *MockNode) subscribe(conn *wsWrapper, req *request, sub subscriptionHandler) {
	m.count(req.Method)

	sink := &SubscriptionSink{ID: uuid.NewString(), conn: conn, method: sub.notifyMethod}

	if err := sub.fn(req.Params, sink); err != nil {
		_ = conn.writeJSON(reply{JSONRPC: "2.0", ID: req.ID, Error: toRPCError(err)})

		return
	}

	m.lock.Lock()
	m.sinks[sink.ID] = sink
	m.lock.Unlock()

	_ = conn.writeJSON(reply{JSONRPC: "2.0", ID: req.ID, Result: sink.ID})

	sink.flush()
}

func (m *MockNode) count(method string) {
	m.lock.Lock()
	m.calls[method]++
	m.lock.Unlock()
}

func (m *MockNode) dispatch(req *request) reply {
	m.count(req.Method)

	m.lock.Lock()
	fn, ok := m.handlers[req.Method]
	m.lock.Unlock()

	if !ok {
		return reply{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: -32601, Message: "Method not found"}}
	}

	result, err := fn(req.Params)
	if err != nil {
		return reply{JSONRPC: "2.0", ID: req.ID, Error: toRPCError(err)}
	}

	if result == nil {
		// encode a null result explicitly
		result = jsoniter.RawMessage("null")
	}

	return reply{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func toRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	return &RPCError{Code: -32000, Message: err.Error()}
}
