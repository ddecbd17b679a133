package jsonrpc

import (
	"context"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/substrate-client/helper/tests"
)

func TestHTTPTransport_Call(t *testing.T) {
	t.Parallel()

	node := tests.NewMockNode(t)
	node.HandleResult("system_chain", "Development")
	node.Handle("author_submitExtrinsic", func([]jsoniter.RawMessage) (interface{}, error) {
		return nil, &tests.RPCError{Code: 1010, Message: "Invalid Transaction"}
	})

	tr, err := NewHTTPTransport(node.HTTPURL())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = tr.Close()
	})

	var chain string
	require.NoError(t, tr.Call(context.Background(), "system_chain", &chain))
	assert.Equal(t, "Development", chain)

	err = tr.Call(context.Background(), "author_submitExtrinsic", nil, "0x00")

	var obj *ErrorObject

	require.ErrorAs(t, err, &obj)
	assert.Equal(t, 1010, obj.Code)

	tr.maxRequestSize = 64

	err = tr.Call(context.Background(), "author_submitExtrinsic", nil, strings.Repeat("ab", 64))
	assert.ErrorIs(t, err, ErrRequestTooLarge)
	assert.Equal(t, 1, node.Calls("author_submitExtrinsic"))
}

func TestHTTPTransport_Unreachable(t *testing.T) {
	t.Parallel()

	tr, err := NewHTTPTransport("http://127.0.0.1:1")
	require.NoError(t, err)

	err = tr.Call(context.Background(), "system_chain", nil)
	assert.ErrorIs(t, err, ErrNodeCommunication)
}
