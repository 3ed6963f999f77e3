// internal/docker/logs.go
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rusenback/idlemon/internal/model"
)

// Tail returns up to maxLines recent log messages, oldest first. A positive
// since limits the window to that much history.
func (c *Client) Tail(ctx context.Context, maxLines int, since time.Duration) ([]string, error) {
	entries, err := c.Logs(ctx, maxLines, since)
	if err != nil {
		return nil, err
	}
	return model.Messages(entries), nil
}

// Logs retrieves container logs
func (c *Client) Logs(ctx context.Context, tail int, since time.Duration) ([]model.LogEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// TTY containers stream raw output without the multiplexing header
	inspect, err := c.cli.ContainerInspect(ctx, c.container)
	if err != nil {
		return nil, fmt.Errorf("inspect container %s: %w", c.container, err)
	}
	tty := inspect.Config != nil && inspect.Config.Tty

	options := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Timestamps: true,
		Tail:       strconv.Itoa(tail), // Get last N lines
	}
	if since > 0 {
		options.Since = since.String()
	}

	reader, err := c.cli.ContainerLogs(ctx, c.container, options)
	if err != nil {
		return nil, fmt.Errorf("read logs of %s: %w", c.container, err)
	}
	defer reader.Close()

	return readLogStream(reader, tty)
}

// readLogStream splits a log stream into entries, keeping the order in which
// frames arrived across stdout and stderr.
func readLogStream(reader io.Reader, tty bool) ([]model.LogEntry, error) {
	sink := &logSink{}
	stdout := &lineWriter{sink: sink, stream: "stdout"}
	stderr := &lineWriter{sink: sink, stream: "stderr"}

	var err error
	if tty {
		_, err = io.Copy(stdout, reader)
	} else {
		_, err = stdcopy.StdCopy(stdout, stderr, reader)
	}
	stdout.flush()
	stderr.flush()

	if err != nil {
		return sink.entries, fmt.Errorf("demultiplex log stream: %w", err)
	}
	return sink.entries, nil
}

type logSink struct {
	mu      sync.Mutex
	entries []model.LogEntry
}

func (s *logSink) add(line, stream string) {
	entry, ok := parseLogLine(line, stream)
	if !ok {
		return
	}
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

// lineWriter buffers a partial line until its newline arrives
type lineWriter struct {
	sink   *logSink
	stream string
	buf    bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		w.sink.add(strings.TrimRight(line, "\r\n"), w.stream)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.buf.Len() > 0 {
		w.sink.add(w.buf.String(), w.stream)
		w.buf.Reset()
	}
}

// parseLogLine parses a single log line
// Returns an entry and a boolean indicating if the entry is valid
func parseLogLine(line, stream string) (model.LogEntry, bool) {
	// Trim whitespace and check if line is empty
	line = strings.TrimSpace(line)
	if line == "" {
		return model.LogEntry{}, false
	}

	entry := model.LogEntry{
		Timestamp: time.Now(),
		Message:   line,
		Stream:    stream,
	}

	// Format: 2024-01-15T10:30:45.123456789Z message
	parts := strings.SplitN(line, " ", 2)
	if timestamp, err := time.Parse(time.RFC3339Nano, parts[0]); err == nil {
		entry.Timestamp = timestamp
		if len(parts) < 2 {
			return model.LogEntry{}, false
		}
		entry.Message = strings.TrimSpace(parts[1])

		// If message is empty after parsing timestamp, skip it
		if entry.Message == "" {
			return model.LogEntry{}, false
		}
	}

	return entry, true
}
