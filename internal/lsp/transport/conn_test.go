package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"symbolicator/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, v any) string {
	t.Helper()
	var data []byte
	switch msg := v.(type) {
	case string:
		data = []byte(msg)
	default:
		var err error
		data, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return fmt.Sprintf("Content-Length: %d\r\n\r\n%s", len(data), data)
}

func request(id int, method string, params any) map[string]any {
	msg := map[string]any{"jsonrpc": "2.0", "method": method, "params": params}
	if id > 0 {
		msg["id"] = id
	}
	return msg
}

type rawMessage struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *ResponseError  `json:"error"`
}

func readAll(t *testing.T, data []byte) []rawMessage {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader(data))
	var out []rawMessage
	for {
		body, err := readFrame(r, DefaultMaxMessageBytes)
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		var msg rawMessage
		require.NoError(t, json.Unmarshal(body, &msg))
		out = append(out, msg)
	}
}

func serve(t *testing.T, input string, h Handler, opts ...Option) []rawMessage {
	t.Helper()
	var out bytes.Buffer
	conn := NewConn(strings.NewReader(input), &out, opts...)
	require.NoError(t, conn.Serve(context.Background(), h))
	return readAll(t, out.Bytes())
}

var echo = HandlerFunc(func(_ context.Context, req *Request) (any, error) {
	switch req.Method {
	case "decode":
		return nil, errors.New(errors.CodeDecode, "bad params")
	case "unknown":
		return nil, errors.New(errors.CodeNotSupported, "no such method")
	case "boom":
		return nil, errors.New(errors.CodeAnalyzer, "failed")
	case "panic":
		panic("kaboom")
	case "exit":
		return nil, ErrExit
	case "nothing":
		return nil, nil
	}
	return map[string]string{"method": req.Method}, nil
})

func TestServeAnswersRequestsAndSkipsNotifications(t *testing.T) {
	input := frame(t, request(1, "hello", nil)) +
		frame(t, request(0, "note", map[string]int{"a": 1})) +
		frame(t, request(2, "nothing", nil))

	msgs := serve(t, input, echo)
	require.Len(t, msgs, 2)

	assert.JSONEq(t, `1`, string(msgs[0].ID))
	assert.JSONEq(t, `{"method":"hello"}`, string(msgs[0].Result))
	assert.Nil(t, msgs[0].Error)

	assert.JSONEq(t, `2`, string(msgs[1].ID))
	assert.Equal(t, "null", string(msgs[1].Result))
}

func TestServeMapsErrorCodes(t *testing.T) {
	input := frame(t, request(1, "decode", nil)) +
		frame(t, request(2, "unknown", nil)) +
		frame(t, request(3, "boom", nil)) +
		frame(t, request(4, "panic", nil)) +
		frame(t, request(5, "hello", nil))

	msgs := serve(t, input, echo)
	require.Len(t, msgs, 5)
	assert.Equal(t, InvalidParams, msgs[0].Error.Code)
	assert.Equal(t, MethodNotFound, msgs[1].Error.Code)
	assert.Equal(t, InternalError, msgs[2].Error.Code)
	assert.Equal(t, InternalError, msgs[3].Error.Code)
	assert.Contains(t, msgs[3].Error.Message, "kaboom")
	assert.Nil(t, msgs[4].Error, "connection survives a panicking handler")
}

func TestServeStringIDsAreEchoed(t *testing.T) {
	input := frame(t, `{"jsonrpc":"2.0","id":"abc","method":"hello"}`)
	msgs := serve(t, input, echo)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `"abc"`, string(msgs[0].ID))
}

func TestServeParseErrorKeepsConnection(t *testing.T) {
	input := frame(t, `{"jsonrpc":`) + frame(t, request(7, "hello", nil))

	msgs := serve(t, input, echo)
	require.Len(t, msgs, 2)
	assert.Equal(t, ParseError, msgs[0].Error.Code)
	assert.Equal(t, "null", string(msgs[0].ID))
	assert.JSONEq(t, `7`, string(msgs[1].ID))
}

func TestServeRejectsMissingMethodAndIgnoresResponses(t *testing.T) {
	input := frame(t, `{"jsonrpc":"2.0","id":3}`) +
		frame(t, `{"jsonrpc":"2.0","id":4,"result":{}}`)

	msgs := serve(t, input, echo)
	require.Len(t, msgs, 1)
	assert.Equal(t, InvalidRequest, msgs[0].Error.Code)
}

func TestServeStopsOnExit(t *testing.T) {
	input := frame(t, request(0, "exit", nil)) + frame(t, request(1, "hello", nil))

	msgs := serve(t, input, echo)
	assert.Empty(t, msgs)
}

func TestServeRateLimitsRequestsPerMethod(t *testing.T) {
	input := frame(t, request(1, "hello", nil)) +
		frame(t, request(2, "hello", nil)) +
		frame(t, request(3, "other", nil)) +
		frame(t, request(0, "hello", nil))

	msgs := serve(t, input, echo, WithRateLimit(0.001, 1))
	require.Len(t, msgs, 3)
	assert.Nil(t, msgs[0].Error)
	require.NotNil(t, msgs[1].Error)
	assert.Equal(t, RequestThrottled, msgs[1].Error.Code)
	assert.Nil(t, msgs[2].Error)
}

func TestServeReturnsFramingErrors(t *testing.T) {
	var out bytes.Buffer
	conn := NewConn(strings.NewReader("Content-Type: x\r\n\r\n{}"), &out)
	err := conn.Serve(context.Background(), echo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Content-Length")

	conn = NewConn(strings.NewReader(frame(t, request(1, "hello", nil))), &out, WithMaxMessageBytes(4))
	require.Error(t, conn.Serve(context.Background(), echo))
}

func TestServeHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	conn := NewConn(pr, io.Discard)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conn.Serve(ctx, echo) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestNotify(t *testing.T) {
	var out bytes.Buffer
	conn := NewConn(strings.NewReader(""), &out)
	require.NoError(t, conn.Notify("window/showMessage", map[string]any{"type": 1, "message": "hi"}))

	msgs := readAll(t, out.Bytes())
	require.Len(t, msgs, 1)
	assert.Equal(t, "window/showMessage", msgs[0].Method)
	assert.JSONEq(t, `{"type":1,"message":"hi"}`, string(msgs[0].Params))
}

func TestToResponseError(t *testing.T) {
	assert.Nil(t, ToResponseError(nil))
	assert.Equal(t, InvalidParams, ToResponseError(errors.New(errors.CodeDecode, "x")).Code)
	assert.Equal(t, RequestThrottled, ToResponseError(errors.New(errors.CodeRateLimited, "x")).Code)
	assert.Equal(t, InternalError, ToResponseError(io.ErrUnexpectedEOF).Code)
}
