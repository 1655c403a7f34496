package logstream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Run once the consumer has already run.
var ErrClosed = errors.New("log stream closed")

// MsgDisconnected prefixes the single line appended when the channel fails.
const MsgDisconnected = "ERROR - Log stream disconnected"

const maxLineSize = 1 << 20

// Consumer reads one server-sent event stream. It is single use: after the
// stream ends for any reason it stays closed and never reconnects.
type Consumer struct {
	// OnConnect, if set, is called once the stream has answered with a 2xx
	// status and before any event is read.
	OnConnect func()

	client *http.Client
	url    string
	log    zerolog.Logger
	now    func() time.Time

	mu     sync.Mutex
	used   bool
	seq    uint64
	closed bool
}

// NewConsumer creates a consumer for the stream at url. client must not set a
// timeout, the stream is expected to stay open indefinitely.
func NewConsumer(client *http.Client, url string, log zerolog.Logger) *Consumer {
	if client == nil {
		client = http.DefaultClient
	}
	return &Consumer{
		client: client,
		url:    url,
		log:    log,
		now:    time.Now,
	}
}

// Closed reports whether the stream has ended.
func (c *Consumer) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Run opens the stream and delivers every event to sink in arrival order until
// the stream fails or ctx is cancelled. A failure delivers exactly one error
// line and is returned; cancellation ends silently and returns ctx.Err().
func (c *Consumer) Run(ctx context.Context, sink Sink) error {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return ErrClosed
	}
	c.used = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
	}()

	err := c.stream(ctx, sink)
	if ctx.Err() != nil {
		c.log.Debug().Msg("log stream closed on teardown")
		return ctx.Err()
	}

	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	c.log.Warn().Err(err).Str("url", c.url).Msg("log stream failed")
	c.deliver(sink, fmt.Sprintf("%s: %v. Restart to resume streaming.", MsgDisconnected, err))
	return err
}

func (c *Consumer) stream(ctx context.Context, sink Sink) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.log.Debug().Str("url", c.url).Msg("log stream connected")
	if c.OnConnect != nil {
		c.OnConnect()
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var data []string
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		switch {
		case line == "":
			if len(data) > 0 {
				c.deliver(sink, decodePayload(strings.Join(data, "\n")))
				data = data[:0]
			}
		case strings.HasPrefix(line, ":"):
			// comment / keepalive
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	return io.EOF
}

func (c *Consumer) deliver(sink Sink, text string) {
	c.mu.Lock()
	c.seq++
	ev := Event{Seq: c.seq, Text: text, Received: c.now()}
	c.mu.Unlock()

	sink.AppendLog(ev)
}

type payload struct {
	Log *string `json:"log"`
}

// decodePayload extracts the log line from a {"log": "..."} payload. Anything
// else is passed through verbatim.
func decodePayload(raw string) string {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Log == nil {
		return raw
	}
	return *p.Log
}
