package gelf

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func receive(t *testing.T, conn *net.UDPConn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 64<<10)
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(buf[:n], &msg))
	return msg
}

func TestWriter_ZapEntry(t *testing.T) {
	conn := listen(t)
	w, err := New(conn.LocalAddr().String(), "oxiforms")
	require.NoError(t, err)
	defer w.Close()

	line := `{"level":"warn","ts":1760000000.5,"logger":"forms","msg":"submission rejected","reason":"invalid_field_ids","answers":3,"ok":true,"id":"x","tags":["a"]}` + "\n"
	n, err := w.Write([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, len(line), n)

	msg := receive(t, conn)
	assert.Equal(t, "1.1", msg["version"])
	assert.Equal(t, "submission rejected", msg["short_message"])
	assert.EqualValues(t, LevelWarning, msg["level"])
	assert.Equal(t, 1760000000.5, msg["timestamp"])
	assert.Equal(t, "oxiforms", msg["_service"])
	assert.Equal(t, "forms", msg["_logger"])
	assert.Equal(t, "invalid_field_ids", msg["_reason"])
	assert.EqualValues(t, 3, msg["_answers"])
	assert.Equal(t, "true", msg["_ok"])
	assert.Equal(t, "x", msg["_field_id"])
	assert.Equal(t, `["a"]`, msg["_tags"])
	assert.NotContains(t, msg, "_id")
}

func TestWriter_PlainLine(t *testing.T) {
	conn := listen(t)
	w, err := New(conn.LocalAddr().String(), "oxiforms")
	require.NoError(t, err)
	defer w.Close()
	w.now = func() time.Time { return time.Unix(100, 0) }

	_, err = w.Write([]byte("not json\n"))
	require.NoError(t, err)

	msg := receive(t, conn)
	assert.Equal(t, "not json", msg["short_message"])
	assert.EqualValues(t, LevelInfo, msg["level"])
	assert.EqualValues(t, 100, msg["timestamp"])
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, LevelDebug, severity("debug"))
	assert.Equal(t, LevelInfo, severity("info"))
	assert.Equal(t, LevelWarning, severity("warn"))
	assert.Equal(t, LevelError, severity("error"))
	assert.Equal(t, LevelCritical, severity("fatal"))
}
