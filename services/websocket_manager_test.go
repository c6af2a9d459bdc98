package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSocketManager_Lifecycle(t *testing.T) {
	m := NewWebSocketManager()
	a := &ChatConnection{ID: "a", Send: make(chan []byte, 1)}
	b := &ChatConnection{ID: "b", Send: make(chan []byte, 1)}

	m.RegisterConnection(a)
	m.RegisterConnection(b)
	assert.Equal(t, 2, m.GetConnectionCount())

	m.Broadcast("dataset_updated", map[string]string{"action": "added"})
	for _, conn := range []*ChatConnection{a, b} {
		var event EventPayload
		require.NoError(t, json.Unmarshal(<-conn.Send, &event))
		assert.Equal(t, "dataset_updated", event.Type)
		assert.NotZero(t, event.Timestamp)
	}

	require.NoError(t, m.SendToConnection("a", []byte("one")))
	assert.ErrorIs(t, m.SendToConnection("a", []byte("two")), ErrConnectionBufferFull)
	assert.ErrorIs(t, m.SendToConnection("missing", nil), ErrConnectionNotFound)

	m.UnregisterConnection("a")
	m.UnregisterConnection("a")
	assert.Equal(t, 1, m.GetConnectionCount())

	<-a.Send
	_, open := <-a.Send
	assert.False(t, open)
}
