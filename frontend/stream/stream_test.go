package stream_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulasmuth/brokerd/frontend/stream"
)

func setup(t *testing.T) *websocket.Conn {
	t.Helper()

	stream.Initialize()

	server := httptest.NewServer(http.HandlerFunc(stream.Handler))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.Nil(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func subscribe(t *testing.T, conn *websocket.Conn, patterns ...string) {
	t.Helper()

	sub, err := json.Marshal(stream.SubscribeMessage{Streams: patterns})
	require.Nil(t, err)
	require.Nil(t, conn.WriteMessage(websocket.TextMessage, sub))

	// the subscribe message is echoed back once accepted
	_, echo, err := conn.ReadMessage()
	require.Nil(t, err)
	assert.JSONEq(t, string(sub), string(echo))
}

func TestStreamSubscribeAndPush(t *testing.T) {
	conn := setup(t)
	subscribe(t, conn, "events-*")

	stream.Push(stream.Payload{
		Channel:    "events-prod",
		Offset:     0,
		NextOffset: 6,
		Data:       []byte("hello"),
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, buf, err := conn.ReadMessage()
	require.Nil(t, err)

	var payload stream.Payload
	require.Nil(t, json.Unmarshal(buf, &payload))
	assert.Equal(t, "events-prod", payload.Channel)
	assert.Equal(t, uint64(0), payload.Offset)
	assert.Equal(t, uint64(6), payload.NextOffset)
	assert.Equal(t, []byte("hello"), payload.Data)
}

func TestStreamIgnoresUnmatchedChannels(t *testing.T) {
	conn := setup(t)
	subscribe(t, conn, "metrics-*")

	stream.Push(stream.Payload{Channel: "events-prod", Data: []byte("x")})

	conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.NotNil(t, err)
}

func TestStreamRejectsInvalidPattern(t *testing.T) {
	conn := setup(t)

	sub, err := json.Marshal(stream.SubscribeMessage{Streams: []string{"events-["}})
	require.Nil(t, err)
	require.Nil(t, conn.WriteMessage(websocket.TextMessage, sub))

	_, buf, err := conn.ReadMessage()
	require.Nil(t, err)

	var errMsg stream.ErrorMessage
	require.Nil(t, json.Unmarshal(buf, &errMsg))
	assert.Contains(t, errMsg.Error, "invalid stream pattern")
}
