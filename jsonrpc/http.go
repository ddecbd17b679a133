package jsonrpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/umbracle/ethgo/jsonrpc"
	"github.com/umbracle/ethgo/jsonrpc/codec"
)

// HTTPTransport sends plain request/response calls over HTTP. It cannot subscribe.
type HTTPTransport struct {
	client         *jsonrpc.Client
	maxRequestSize int
}

func NewHTTPTransport(url string) (*HTTPTransport, error) {
	client, err := jsonrpc.NewClient(url)
	if err != nil {
		return nil, communicationError("dial "+url, err)
	}

	return &HTTPTransport{client: client, maxRequestSize: DefaultMaxRequestSize}, nil
}

func (h *HTTPTransport) Call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	if h.maxRequestSize > 0 {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", method, err)
		}

		if len(data) > h.maxRequestSize {
			return fmt.Errorf("%s: %w: %d > %d bytes", method, ErrRequestTooLarge, len(data), h.maxRequestSize)
		}
	}

	// the underlying client has no context support, so cancellation only
	// stops the wait
	done := make(chan error, 1)

	if out == nil {
		var discard interface{}
		out = &discard
	}

	go func() {
		done <- h.client.Call(method, out, params...)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err == nil {
			return nil
		}

		var obj *codec.ErrorObject
		if errors.As(err, &obj) {
			return classifyErrorObject(method, &ErrorObject{Code: obj.Code, Message: obj.Message, Data: obj.Data})
		}

		return communicationError(method, err)
	}
}

func (h *HTTPTransport) Close() error {
	return h.client.Close()
}
