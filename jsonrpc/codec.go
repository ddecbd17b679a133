package jsonrpc

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const jsonrpcVersion = "2.0"

// Request is a jsonrpc request
type Request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// Response is a jsonrpc response or, when Method is set, a subscription notification
type Response struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      *uint64             `json:"id,omitempty"`
	Result  jsoniter.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject        `json:"error,omitempty"`
	Method  string              `json:"method,omitempty"`
	Params  *Notification       `json:"params,omitempty"`
}

// Notification carries one subscription item
type Notification struct {
	Subscription string              `json:"subscription"`
	Result       jsoniter.RawMessage `json:"result"`
}

// ErrorObject is a jsonrpc error
type ErrorObject struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements error interface
func (e *ErrorObject) Error() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf("jsonrpc.internal marshal error: %v", err)
	}

	return string(data)
}

func newRequest(id uint64, method string, params []interface{}) *Request {
	if params == nil {
		params = []interface{}{}
	}

	return &Request{JSONRPC: jsonrpcVersion, ID: id, Method: method, Params: params}
}

// decodeResult unmarshals a result into out, leaving out untouched for a null result
func decodeResult(raw jsoniter.RawMessage, out interface{}) error {
	if out == nil || len(raw) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}

	return nil
}
