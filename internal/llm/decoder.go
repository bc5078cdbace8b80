package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

var (
	dataPrefix   = []byte("data:")
	doneSentinel = []byte("[DONE]")
)

const readBufferSize = 4096

// Decoder turns a server-sent-event completion stream into Events.
//
// Records start with "data:" at the beginning of a line and end at the line
// break (LF, CRLF or a bare CR). A line holding several records joined
// without a break is decoded one JSON value at a time. Bytes are buffered until a record is complete, so the produced
// sequence does not depend on how the body was chunked, even when a chunk
// ends inside a multi-byte character.
type Decoder struct {
	body    io.ReadCloser
	buf     []byte
	readBuf []byte
	pending []Event
	err     error
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithDecoderLogger sets the logger used for skipped records
func WithDecoderLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		if logger != nil {
			d.logger = logger.With("component", "decoder")
		}
	}
}

// NewDecoder creates a decoder reading from body. The decoder owns body and
// closes it when the stream ends, fails, or is cancelled.
func NewDecoder(body io.ReadCloser, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		body:    body,
		readBuf: make([]byte, readBufferSize),
		logger:  slog.Default().With("component", "decoder"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OpenStream validates an HTTP response and wraps its body in a Decoder.
// A non-2xx status or a missing body fails with *TransportError before any
// event is produced.
func OpenStream(resp *http.Response, opts ...DecoderOption) (*Decoder, error) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: statusText(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg := statusText(resp)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if apiMsg := parseAPIError(body); apiMsg != "" {
			msg += ": " + apiMsg
		}
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}
	return NewDecoder(resp.Body, opts...), nil
}

// Next returns the next event. It returns io.EOF when the stream ended
// normally and an error wrapping ctx.Err() once ctx is cancelled; in both
// cases the body has been released and every later call returns the same error.
func (d *Decoder) Next(ctx context.Context) (Event, error) {
	for {
		if err := ctx.Err(); err != nil && d.err == nil {
			d.fail(err)
			d.pending = nil
		}
		if len(d.pending) > 0 {
			ev := d.pending[0]
			d.pending = d.pending[1:]
			return ev, nil
		}
		if d.err != nil {
			return Event{}, d.err
		}

		// Closing the body unblocks a Read stuck waiting on the network
		stop := context.AfterFunc(ctx, func() { d.close() })
		n, err := d.body.Read(d.readBuf)
		stop()

		if n > 0 {
			d.buf = append(d.buf, d.readBuf[:n]...)
			d.drain(false)
		}
		if err == nil {
			continue
		}
		switch {
		case ctx.Err() != nil:
			d.fail(ctx.Err())
			d.pending = nil
		case errors.Is(err, io.EOF):
			d.drain(true)
			d.fail(io.EOF)
		default:
			d.fail(fmt.Errorf("error reading stream: %w", err))
		}
	}
}

// Close releases the underlying body. Later calls to Next return an error.
// Use ctx cancellation to stop a Next call running on another goroutine.
func (d *Decoder) Close() error {
	if d.err == nil {
		d.err = context.Canceled
		d.pending = nil
	}
	return d.close()
}

func (d *Decoder) close() error {
	d.closeOnce.Do(func() {
		d.closeErr = d.body.Close()
	})
	return d.closeErr
}

func (d *Decoder) fail(err error) {
	d.err = err
	_ = d.close()
}

// drain moves every complete record out of the buffer. With final set, the
// unterminated tail is treated as a complete record.
func (d *Decoder) drain(final bool) {
	for {
		i := bytes.IndexAny(d.buf, "\r\n")
		if i < 0 {
			break
		}
		d.record(d.buf[:i])
		d.buf = d.buf[i+1:]
	}
	if final && len(d.buf) > 0 {
		d.record(d.buf)
		d.buf = nil
	}
}

// record decodes one line. Non-data lines (comments, event:, id:) are ignored.
func (d *Decoder) record(line []byte) {
	line = bytes.TrimSpace(line)
	if !bytes.HasPrefix(line, dataPrefix) {
		return
	}
	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 || bytes.Equal(payload, doneSentinel) {
		return
	}
	if !utf8.Valid(payload) {
		d.logger.Warn("skipping stream record with invalid UTF-8", "bytes", len(payload))
		return
	}

	events, err := decodePayloads(payload)
	if err != nil {
		d.logger.Warn("skipping malformed stream record", "error", err, "payload", truncate(string(payload), 200))
		return
	}
	d.pending = append(d.pending, events...)
}

// decodePayloads decodes the JSON values of one line. Values after the first
// must each be introduced by another "data:" token; anything else makes the
// whole line malformed. A "data:" inside a JSON string is content, not a
// separator.
func decodePayloads(payload []byte) ([]Event, error) {
	var events []Event
	for len(payload) > 0 {
		if bytes.HasPrefix(payload, doneSentinel) {
			payload = payload[len(doneSentinel):]
		} else {
			dec := json.NewDecoder(bytes.NewReader(payload))
			var chunk streamChunk
			if err := dec.Decode(&chunk); err != nil {
				return nil, err
			}
			if ev, ok := chunk.toEvent(); ok {
				events = append(events, ev)
			}
			payload = payload[dec.InputOffset():]
		}

		payload = bytes.TrimSpace(payload)
		if len(payload) == 0 {
			break
		}
		if !bytes.HasPrefix(payload, dataPrefix) {
			return nil, fmt.Errorf("unexpected data after record: %q", truncate(string(payload), 40))
		}
		payload = bytes.TrimSpace(payload[len(dataPrefix):])
	}
	return events, nil
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		if text == "" {
			return "empty response body"
		}
		return text + " (empty response body)"
	}
	return text
}

func parseAPIError(body []byte) string {
	var wrapper struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error == nil {
		return ""
	}
	return wrapper.Error.Message
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
