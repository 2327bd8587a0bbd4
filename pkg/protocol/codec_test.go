package protocol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jshinodea/content-retriever/pkg/protocol"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	msg := protocol.New(protocol.TypeUserMessage, map[string]any{"message": "hello"})

	frame, err := protocol.Encode(msg)
	require.NoError(t, err)

	decoded, err := protocol.Decode(frame)
	require.NoError(t, err)

	assert.Equal(t, protocol.TypeUserMessage, decoded.Type)
	assert.Equal(t, "hello", decoded.Content["message"])
	assert.WithinDuration(t, msg.Timestamp, decoded.Timestamp, time.Millisecond)
}

func TestDecode_WireShape(t *testing.T) {
	frame := []byte(`{"type":"start_task","content":{"url":"https://x","instructions":"get titles"},"timestamp":"2026-01-02T15:04:05Z"}`)

	msg, err := protocol.Decode(frame)
	require.NoError(t, err)

	assert.Equal(t, protocol.TypeStartTask, msg.Type)
	assert.Equal(t, "https://x", msg.Content["url"])
	assert.Equal(t, 2026, msg.Timestamp.Year())
}

func TestDecode_UnknownTypeIsNotAnError(t *testing.T) {
	// Forward compatibility: unknown tags decode fine at the envelope layer.
	// The dispatch registry reports them as unhandled.
	msg, err := protocol.Decode([]byte(`{"type":"future_thing","content":{}}`))
	require.NoError(t, err)

	assert.Equal(t, protocol.MessageType("future_thing"), msg.Type)
	assert.False(t, msg.Type.Known())
}

func TestDecode_MalformedFrame(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":`))
	require.Error(t, err)

	var pErr *protocol.ProtocolError
	assert.ErrorAs(t, err, &pErr)
}

func TestDecode_MissingType(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"content":{"message":"hi"}}`))
	require.Error(t, err)

	var pErr *protocol.ProtocolError
	require.ErrorAs(t, err, &pErr)
	assert.Contains(t, pErr.Error(), "missing message type")
}

func TestDecode_InvalidTimestamp(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"type":"user_message","content":{},"timestamp":"yesterday"}`))

	var pErr *protocol.ProtocolError
	assert.ErrorAs(t, err, &pErr)
}

func TestDecode_NilContentBecomesEmptyMap(t *testing.T) {
	msg, err := protocol.Decode([]byte(`{"type":"task_completed"}`))
	require.NoError(t, err)
	assert.NotNil(t, msg.Content)
	assert.Empty(t, msg.Content)
}

func TestMessageType_ClosedSets(t *testing.T) {
	assert.True(t, protocol.TypeStartTask.Inbound())
	assert.True(t, protocol.TypeContentChange.Inbound())
	assert.False(t, protocol.TypeStartTask.Outbound())

	assert.True(t, protocol.TypeTaskStarted.Outbound())
	assert.True(t, protocol.TypeError.Outbound())
	assert.False(t, protocol.TypeError.Inbound())
}
