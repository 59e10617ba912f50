// Package gelf sends log entries to a Graylog input as GELF 1.1 over UDP.
package gelf

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Syslog severities used by GELF.
const (
	LevelCritical = 2
	LevelError    = 3
	LevelWarning  = 4
	LevelInfo     = 6
	LevelDebug    = 7
)

// Writer sends one GELF message per Write. Each Write must hold a single
// JSON object as produced by zap's JSON encoder with the keys set in
// EncoderKeys. Other input is sent as a plain informational message.
// Writer implements zapcore.WriteSyncer.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
	now      func() time.Time
}

// Keys the zap encoder must use for entries written to a Writer.
const (
	KeyLevel   = "level"
	KeyTime    = "ts"
	KeyMessage = "msg"
)

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("gelf: dial %s: %w", addr, err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service + "-server"
	}

	return &Writer{conn: conn, hostname: hostname, service: service, now: time.Now}, nil
}

// Write implements io.Writer. Send failures are dropped; logging must not
// fail because Graylog is down.
func (w *Writer) Write(p []byte) (int, error) {
	payload, err := json.Marshal(w.message(p))
	if err != nil {
		return len(p), nil
	}
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Sync() error { return nil }

func (w *Writer) Close() error { return w.conn.Close() }

func (w *Writer) message(p []byte) map[string]any {
	line := strings.TrimRight(string(p), "\n")
	msg := map[string]any{
		"version":  "1.1",
		"host":     w.hostname,
		"level":    LevelInfo,
		"_service": w.service,
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		msg["short_message"] = line
		msg["timestamp"] = unixSeconds(w.now())
		return msg
	}

	short, _ := entry[KeyMessage].(string)
	if short == "" {
		short = "(empty)"
	}
	msg["short_message"] = short
	if lvl, ok := entry[KeyLevel].(string); ok {
		msg["level"] = severity(lvl)
	}
	if ts, ok := entry[KeyTime].(float64); ok {
		msg["timestamp"] = ts
	} else {
		msg["timestamp"] = unixSeconds(w.now())
	}

	for k, v := range entry {
		switch k {
		case KeyMessage, KeyLevel, KeyTime:
			continue
		case "id":
			k = "field_id" // _id is reserved by GELF
		}
		msg["_"+sanitize(k)] = flatten(v)
	}
	return msg
}

func severity(level string) int {
	switch level {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarning
	case "error":
		return LevelError
	default: // dpanic, panic, fatal
		return LevelCritical
	}
}

// flatten keeps strings and numbers and JSON-encodes anything else, since
// GELF additional fields cannot be objects.
func flatten(v any) any {
	switch v := v.(type) {
	case string, float64:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func sanitize(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, k)
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
