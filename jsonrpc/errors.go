package jsonrpc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNodeCommunication marks failures to reach the node or to read its reply.
	// A request that failed this way may or may not have reached the node.
	ErrNodeCommunication = errors.New("node communication failed")
	// ErrRequestTooLarge is returned when a request exceeds the size the client
	// or the node accepts
	ErrRequestTooLarge       = errors.New("request exceeds maximum size")
	ErrClosed                = errors.New("transport closed")
	ErrSubscriptionClosed    = errors.New("subscription closed")
	ErrSubscriptionsDisabled = errors.New("transport does not support subscriptions")
	ErrNotFound              = errors.New("not found")
)

const (
	codeInvalidRequest = -32600
	codeOversized      = -32007
)

// CommunicationError wraps a transport failure of one method call
type CommunicationError struct {
	Method string
	Err    error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Method, ErrNodeCommunication, e.Err)
}

func (e *CommunicationError) Unwrap() error {
	return e.Err
}

func (e *CommunicationError) Is(target error) bool {
	return target == ErrNodeCommunication
}

func communicationError(method string, err error) error {
	if err == nil {
		return nil
	}

	return &CommunicationError{Method: method, Err: err}
}

// classifyErrorObject maps node side size rejections to ErrRequestTooLarge
func classifyErrorObject(method string, obj *ErrorObject) error {
	msg := strings.ToLower(obj.Message)

	if obj.Code == codeOversized ||
		(obj.Code == codeInvalidRequest && strings.Contains(msg, "too large")) ||
		strings.Contains(msg, "request too big") {
		return fmt.Errorf("%s: %w: %s", method, ErrRequestTooLarge, obj.Message)
	}

	return obj
}
