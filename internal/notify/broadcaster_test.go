package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/inkwell/internal/notify"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	events []string
}

func (o *countingObserver) RecordEvent(topic, kind string) {
	o.events = append(o.events, topic+"/"+kind)
}

func TestBroadcaster_PublishReachesTopicSubscribers(t *testing.T) {
	b := notify.NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	projectCh, _ := b.Subscribe(ctx, notify.ProjectTopic("u1"))
	usersCh, _ := b.Subscribe(ctx, notify.TopicUsers)

	b.Publish(notify.ProjectTopic("u1"), "chapter_added", "novel-writer-data:u1")

	select {
	case ev := <-projectCh:
		require.Equal(t, "project:u1", ev.Topic)
		require.Equal(t, "chapter_added", ev.Kind)
		require.Equal(t, "novel-writer-data:u1", ev.Key)
		require.NotZero(t, ev.At)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}

	select {
	case ev := <-usersCh:
		t.Fatalf("unexpected event on users topic: %+v", ev)
	default:
	}
}

func TestBroadcaster_DropsWhenSubscriberIsFull(t *testing.T) {
	b := notify.NewBroadcaster(nil)
	defer b.Close()

	ch, _ := b.Subscribe(context.Background(), notify.TopicSettings)
	for i := 0; i < 100; i++ {
		b.Publish(notify.TopicSettings, "changed", "adminSettings")
	}
	require.Len(t, ch, 64)
}

func TestBroadcaster_ContextCancelUnsubscribes(t *testing.T) {
	b := notify.NewBroadcaster(nil)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := b.Subscribe(ctx, notify.TopicUsers)
	require.Equal(t, 1, b.Subscribers(notify.TopicUsers))

	cancel()
	require.Eventually(t, func() bool {
		return b.Subscribers(notify.TopicUsers) == 0
	}, time.Second, 10*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok)
}

func TestBroadcaster_CloseClosesChannels(t *testing.T) {
	b := notify.NewBroadcaster(nil)
	ch, _ := b.Subscribe(context.Background(), notify.TopicUsers)

	b.Close()
	_, ok := <-ch
	require.False(t, ok)

	late, _ := b.Subscribe(context.Background(), notify.TopicUsers)
	_, ok = <-late
	require.False(t, ok)

	// Publishing after close is harmless.
	b.Publish(notify.TopicUsers, "user_created", "users")
}

func TestBroadcaster_Observer(t *testing.T) {
	b := notify.NewBroadcaster(nil)
	defer b.Close()

	obs := &countingObserver{}
	b.SetObserver(obs)
	b.Publish(notify.TopicSettings, "changed", "adminSettings")

	require.Equal(t, []string{"settings/changed"}, obs.events)
}
