package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"symbolicator/internal/core/errors"
	"symbolicator/internal/shared/observability"
	"symbolicator/internal/shared/util"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultMaxMessageBytes caps a single message body.
const DefaultMaxMessageBytes = 64 << 20

// ErrExit is returned by a handler to end Serve after the current message.
var ErrExit = stderrors.New("transport: exit requested")

// Handler answers one request or notification. The result of a notification
// is discarded.
type Handler interface {
	Handle(ctx context.Context, req *Request) (any, error)
}

type HandlerFunc func(ctx context.Context, req *Request) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

type Option func(*Conn)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit throttles requests per method. Notifications are never
// throttled because dropping a didChange would desync the buffer.
func WithRateLimit(requestsPerMinute float64, burst int) Option {
	return func(c *Conn) {
		if requestsPerMinute <= 0 {
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = util.NewLimiterRegistry(requestsPerMinute/60, burst, 10*time.Minute)
	}
}

func WithMaxMessageBytes(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.maxMessageBytes = n
		}
	}
}

// Conn is one LSP connection. Reads happen on a single goroutine and messages
// are handled in arrival order; writes are serialized.
type Conn struct {
	reader          *bufio.Reader
	writer          io.Writer
	writeMu         sync.Mutex
	logger          *slog.Logger
	limiter         *util.LimiterRegistry
	maxMessageBytes int
}

func NewConn(r io.Reader, w io.Writer, opts ...Option) *Conn {
	c := &Conn{
		reader:          bufio.NewReader(r),
		writer:          w,
		logger:          slog.Default(),
		maxMessageBytes: DefaultMaxMessageBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type incoming struct {
	body []byte
	err  error
}

// Serve reads and handles messages until the stream ends, a handler returns
// ErrExit, or ctx is cancelled. A clean end of stream returns nil.
func (c *Conn) Serve(ctx context.Context, h Handler) error {
	if c.limiter != nil {
		defer c.limiter.Close()
	}

	stop := make(chan struct{})
	defer close(stop)
	msgs := make(chan incoming)
	go c.readLoop(msgs, stop)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in := <-msgs:
			if in.err != nil {
				if stderrors.Is(in.err, io.EOF) {
					return nil
				}
				return in.err
			}
			if err := c.dispatch(ctx, h, in.body); stderrors.Is(err, ErrExit) {
				return nil
			}
		}
	}
}

func (c *Conn) readLoop(msgs chan<- incoming, stop <-chan struct{}) {
	for {
		body, err := readFrame(c.reader, c.maxMessageBytes)
		select {
		case msgs <- incoming{body: body, err: err}:
		case <-stop:
			return
		}
		if err != nil {
			return
		}
	}
}

type envelope struct {
	Request
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

func (c *Conn) dispatch(ctx context.Context, h Handler, body []byte) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn("malformed JSON-RPC message", "error", err)
		c.write(errorResponse(nil, &ResponseError{Code: ParseError, Message: err.Error()}))
		return nil
	}
	req := &env.Request
	if req.Method == "" {
		if !req.IsNotification() && (len(env.Result) > 0 || env.Error != nil) {
			c.logger.Debug("ignoring client response", "id", string(req.ID))
			return nil
		}
		c.write(errorResponse(req.ID, &ResponseError{Code: InvalidRequest, Message: "missing method"}))
		return nil
	}
	return c.handle(ctx, h, req)
}

func (c *Conn) handle(ctx context.Context, h Handler, req *Request) error {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "lsp "+req.Method)
	span.SetAttributes(attribute.String("rpc.method", req.Method))
	defer span.End()

	var (
		result any
		err    error
	)
	if !req.IsNotification() && c.limiter != nil && !c.limiter.Allow(req.Method) {
		err = errors.AddContext(errors.New(errors.CodeRateLimited, "request rate exceeded"), errors.CtxMethod, req.Method)
	} else {
		result, err = invoke(ctx, h, req)
	}

	exit := stderrors.Is(err, ErrExit)
	status := "ok"
	if err != nil && !exit {
		status = string(errors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	label := req.Method
	if errors.IsCode(err, errors.CodeNotSupported) {
		label = "unknown"
	}
	observability.RequestsTotal.WithLabelValues(label, status).Inc()
	observability.RequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

	if exit {
		return ErrExit
	}
	if req.IsNotification() {
		if err != nil {
			c.logger.Warn("notification handler failed", "method", req.Method, "error", err)
		}
		return nil
	}
	if err != nil {
		c.logger.Debug("request failed", "method", req.Method, "error", err)
		c.write(errorResponse(req.ID, ToResponseError(err)))
		return nil
	}
	resp, mErr := resultResponse(req.ID, result)
	if mErr != nil {
		c.logger.Error("encode result failed", "method", req.Method, "error", mErr)
		c.write(errorResponse(req.ID, &ResponseError{Code: InternalError, Message: mErr.Error()}))
		return nil
	}
	c.write(resp)
	return nil
}

func invoke(ctx context.Context, h Handler, req *Request) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.AddContext(errors.New(errors.CodeInternal, fmt.Sprintf("handler panic: %v", r)), errors.CtxMethod, req.Method)
		}
	}()
	return h.Handle(ctx, req)
}

// Notify sends a server to client notification.
func (c *Conn) Notify(method string, params any) error {
	return c.writeMessage(notification{JSONRPC: jsonrpcVersion, Method: method, Params: params})
}

func (c *Conn) write(resp *Response) {
	if err := c.writeMessage(resp); err != nil {
		c.logger.Error("write response failed", "error", err)
	}
}

func (c *Conn) writeMessage(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + 32)
	fmt.Fprintf(&buf, "Content-Length: %d\r\n\r\n", len(data))
	buf.Write(data)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.writer.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// readFrame reads one header block and the body it announces.
func readFrame(r *bufio.Reader, maxBytes int) ([]byte, error) {
	length := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if stderrors.Is(err, io.EOF) && strings.TrimSpace(line) == "" && length < 0 {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", line)
		}
		if strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid Content-Length %q", value)
			}
			length = n
		}
	}
	if length < 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}
	if length > maxBytes {
		return nil, fmt.Errorf("message of %d bytes exceeds limit of %d", length, maxBytes)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
