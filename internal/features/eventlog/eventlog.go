// Package eventlog keeps the audit trail of everything the bot does. Every
// entry is rendered twice: appended to an unbounded line-delimited file for
// audit, and pushed onto a Redis list trimmed to the most recent 1000
// entries for quick inspection. The two views serve different retention
// needs and are deliberately not collapsed into one.
package eventlog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	recentKey = "events:recent"
	recentCap = 1000

	fileName = "events.log"
)

// Entry is one immutable audit record.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

// Logger writes entries to both renderings.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	rdb  *redis.Client
	log  zerolog.Logger
}

// Open creates the log directory if needed and opens the line-oriented log
// for appending.
func Open(dir string, rdb *redis.Client, log zerolog.Logger) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, fileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{file: f, rdb: rdb, log: log}, nil
}

// Append records an event. Write failures are logged and swallowed; the
// audit trail must never block or fail the operation that produced the
// event.
func (l *Logger) Append(ctx context.Context, eventType string, payload map[string]interface{}) {
	entry := Entry{Timestamp: time.Now().UTC(), Type: eventType, Payload: payload}

	data, err := json.Marshal(entry)
	if err != nil {
		l.log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to encode event")
		return
	}

	l.mu.Lock()
	_, ferr := l.file.Write(append(data, '\n'))
	l.mu.Unlock()
	if ferr != nil {
		l.log.Warn().Err(ferr).Str("event_type", eventType).Msg("Failed to append event to file")
	}

	pipe := l.rdb.Pipeline()
	pipe.LPush(ctx, recentKey, data)
	pipe.LTrim(ctx, recentKey, 0, recentCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to push event to recent list")
	}
}

// Recent returns up to n entries from the capped view, newest first.
func (l *Logger) Recent(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 || n > recentCap {
		n = recentCap
	}
	rows, err := l.rdb.LRange(ctx, recentKey, 0, n-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var e Entry
		if err := json.Unmarshal([]byte(row), &e); err != nil {
			// A malformed row is skipped, not fatal.
			l.log.Warn().Err(err).Msg("Skipping malformed event entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// TailLines returns the last n lines of the unbounded file rendering.
func (l *Logger) TailLines(n int) ([]string, error) {
	l.mu.Lock()
	name := l.file.Name()
	l.mu.Unlock()

	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil, nil
	}
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Close flushes and closes the file rendering.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
