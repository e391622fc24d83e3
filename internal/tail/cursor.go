package tail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// maxPending bounds the unterminated trailing fragment kept between polls.
const maxPending = 1 << 20

// Delta is the outcome of one poll.
type Delta struct {
	// Rotated is set when the file shrank or was replaced. Lines, if any,
	// were read from the new file and come after the rotation.
	Rotated bool
	Lines   []string
	// Err is a transient read failure. The cursor did not advance.
	Err error
}

// Empty reports whether the poll produced nothing to publish.
func (d Delta) Empty() bool {
	return !d.Rotated && len(d.Lines) == 0
}

// Cursor tracks the consumed size of one log file.
// It is not safe for concurrent use; the watcher owns it.
type Cursor struct {
	path     string
	lastSize int64
	identity os.FileInfo
	pending  []byte
	log      *slog.Logger
}

// NewCursor positions a cursor at the current end of the file so that
// existing content is treated as history. A missing file starts at zero.
func NewCursor(path string, logger *slog.Logger) *Cursor {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cursor{path: path, log: logger.With("component", "tail", "path", path)}
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		c.lastSize = info.Size()
		c.identity = info
	}
	return c
}

// Path returns the tailed file.
func (c *Cursor) Path() string {
	return c.path
}

// Offset returns the number of bytes consumed so far.
func (c *Cursor) Offset() int64 {
	return c.lastSize
}

// Poll reads whatever was appended since the previous poll.
func (c *Cursor) Poll() Delta {
	file, err := os.Open(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Delta{}
		}
		return c.fail(fmt.Errorf("open log: %w", err))
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return c.fail(fmt.Errorf("stat log: %w", err))
	}
	if !info.Mode().IsRegular() {
		return c.fail(fmt.Errorf("log path is not a regular file: %s", info.Mode()))
	}
	size := info.Size()

	var delta Delta
	switch {
	case c.identity != nil && !os.SameFile(c.identity, info):
		c.log.Info("log file replaced", "previous_size", c.lastSize, "size", size)
		c.rotate(0, info)
		delta.Rotated = true
	case size < c.lastSize:
		c.log.Info("log file truncated", "previous_size", c.lastSize, "size", size)
		c.rotate(size, info)
		return Delta{Rotated: true}
	}
	c.identity = info
	if size == c.lastSize {
		return delta
	}

	buf := make([]byte, size-c.lastSize)
	if _, err := io.ReadFull(io.NewSectionReader(file, c.lastSize, int64(len(buf))), buf); err != nil {
		failed := c.fail(fmt.Errorf("read log range [%d,%d): %w", c.lastSize, size, err))
		failed.Rotated = delta.Rotated
		return failed
	}
	c.lastSize = size
	delta.Lines = c.split(buf)
	return delta
}

func (c *Cursor) rotate(baseline int64, info os.FileInfo) {
	c.lastSize = baseline
	c.identity = info
	c.pending = nil
}

func (c *Cursor) fail(err error) Delta {
	c.log.Warn("log read failed", "offset", c.lastSize, "error", err)
	return Delta{Err: err}
}

// split returns the complete non-blank lines in pending+chunk and keeps any
// unterminated remainder for the next poll.
func (c *Cursor) split(chunk []byte) []string {
	data := chunk
	if len(c.pending) > 0 {
		data = append(c.pending, chunk...)
		c.pending = nil
	}
	var lines []string
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		lines = appendLine(lines, data[:idx])
		data = data[idx+1:]
	}
	if len(data) > maxPending {
		c.log.Warn("unterminated log line exceeds buffer, emitting as is", "bytes", len(data))
		return appendLine(lines, data)
	}
	if len(data) > 0 {
		c.pending = append([]byte(nil), data...)
	}
	return lines
}

func appendLine(lines []string, line []byte) []string {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(bytes.TrimSpace(line)) == 0 {
		return lines
	}
	return append(lines, string(line))
}
