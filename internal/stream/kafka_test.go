package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jason-s-yu/forca/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestAppendKeysByRoom(t *testing.T) {
	w := &captureWriter{}
	j := &KafkaJournal{w: w}

	ev := models.RoomEvent{RoomID: "sala-1", Seq: 7, Event: "jogada", Payload: map[string]interface{}{"letra": "A"}}
	require.NoError(t, j.Append(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "sala-1", string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "event", Value: []byte("jogada")},
		{Key: "seq", Value: []byte("7")},
	}, msg.Headers)

	var decoded models.RoomEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.Seq, decoded.Seq)
	assert.Equal(t, "A", decoded.Payload["letra"])

	require.NoError(t, j.Close())
	assert.True(t, w.closed)
}

func TestAppendWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	j := &KafkaJournal{w: &captureWriter{err: boom}}

	err := j.Append(context.Background(), models.RoomEvent{RoomID: "R", Seq: 1})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "room R")
}
