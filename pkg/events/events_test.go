package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(Event{Kind: KindNodeCreated, NodeIDs: []uint64{1}})

	select {
	case ev := <-sub:
		assert.Equal(t, KindNodeCreated, ev.Kind)
		assert.Equal(t, []uint64{1}, ev.NodeIDs)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerMultipleSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	s1 := b.Subscribe()
	s2 := b.Subscribe()
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(Event{Kind: KindSchemaChanged})

	for _, s := range []Subscriber{s1, s2} {
		select {
		case ev := <-s:
			assert.Equal(t, KindSchemaChanged, ev.Kind)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBrokerUnsubscribe(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after unsubscribe")
}
