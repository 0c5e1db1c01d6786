package jsonrpc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// maxContentLength bounds a single frame. Vale alert payloads for very large
// documents stay well below this.
const maxContentLength = 64 << 20

var errMissingLength = errors.New("missing Content-Length header")

// Codec reads and writes Content-Length framed JSON-RPC messages.
// Reads are not synchronized; writes are.
type Codec struct {
	reader *bufio.Reader
	writer io.Writer
	wmu    sync.Mutex
}

// NewCodec creates a framed codec over the given streams.
func NewCodec(r io.Reader, w io.Writer) *Codec {
	return &Codec{
		reader: bufio.NewReaderSize(r, 64*1024),
		writer: w,
	}
}

// Read returns the body of the next frame.
func (c *Codec) Read() ([]byte, error) {
	length := -1
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading header: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "Content-Length") {
			// Content-Type and unknown headers are ignored.
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid Content-Length %q", val)
		}
		if n > maxContentLength {
			return nil, fmt.Errorf("Content-Length %d exceeds limit", n)
		}
		length = n
	}
	if length < 0 {
		return nil, errMissingLength
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(c.reader, body); err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

// Write frames data and writes it in a single call.
func (c *Codec) Write(data []byte) error {
	header := "Content-Length: " + strconv.Itoa(len(data)) + "\r\n\r\n"
	frame := make([]byte, 0, len(header)+len(data))
	frame = append(frame, header...)
	frame = append(frame, data...)

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.writer.Write(frame)
	return err
}
