package kafka

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishBlocksOnlyWhenInboxIsFull(t *testing.T) {
	// not started: nothing drains the inbox and nothing dials the broker
	p := NewProducer([]string{"localhost:9092"}, "order.placed", 1, zerolog.Nop())

	p.Publish([]byte("ORD202603041234"), []byte(`{}`))
	require.Len(t, p.inbox, 1)

	done := make(chan struct{})
	go func() {
		p.Publish([]byte("ORD202603045678"), []byte(`{}`))
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("publish returned with a full inbox")
	case <-time.After(50 * time.Millisecond):
	}

	m := <-p.inbox
	assert.Equal(t, "ORD202603041234", string(m.Key))
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish stayed blocked after the inbox drained")
	}
	assert.Equal(t, "ORD202603045678", string((<-p.inbox).Key))
}
