package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/models"
)

func TestSubscribeReceivesBroadcast(t *testing.T) {
	svc := NewNotificationService(&recordingNotificationRepo{}, nil, "", nil, zerolog.Nop())

	stream, cleanup := svc.Subscribe(5)
	defer cleanup()

	other, otherCleanup := svc.Subscribe(6)
	defer otherCleanup()

	svc.Broadcast(models.Notification{ID: 1, RecipientID: 5, Kind: models.NotificationKindTicketReply, Title: "New reply"})

	select {
	case received := <-stream:
		require.Equal(t, uint(5), received.RecipientID)
		require.Equal(t, models.NotificationKindTicketReply, received.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected a notification on the subscriber channel")
	}

	select {
	case unexpected := <-other:
		t.Fatalf("unexpected notification for other recipient: %+v", unexpected)
	default:
	}
}

func TestSubscribeCleanupClosesChannel(t *testing.T) {
	svc := NewNotificationService(&recordingNotificationRepo{}, nil, "", nil, zerolog.Nop())

	stream, cleanup := svc.Subscribe(5)
	cleanup()

	_, open := <-stream
	require.False(t, open)
}

func TestBroadcastDropsWhenSubscriberIsFull(t *testing.T) {
	svc := NewNotificationService(&recordingNotificationRepo{}, nil, "", nil, zerolog.Nop())

	_, cleanup := svc.Subscribe(5)
	defer cleanup()

	// Overflow the buffered channel; delivery stays non-blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < notificationBufferSize*2; i++ {
			svc.Broadcast(models.Notification{ID: uint(i + 1), RecipientID: 5, Kind: models.NotificationKindTicketReply})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked on a full subscriber channel")
	}
}

func TestNotificationListRequiresRecipient(t *testing.T) {
	svc := NewNotificationService(&recordingNotificationRepo{}, nil, "", nil, zerolog.Nop())

	_, err := svc.List(context.Background(), 0, 0, 0)
	require.Error(t, err)
}

func TestBroadcastRelaysAcrossNodes(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	nodeA := NewNotificationService(&recordingNotificationRepo{}, clientA, "lms", nil, zerolog.Nop())
	nodeB := NewNotificationService(&recordingNotificationRepo{}, clientB, "lms", nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nodeB.Start(ctx)

	stream, cleanup := nodeB.Subscribe(5)
	defer cleanup()

	// The consumer subscribes asynchronously; retry until the relay lands.
	received := make(chan dto.NotificationResponse, 1)
	go func() {
		if notification, ok := <-stream; ok {
			received <- notification
		}
	}()

	require.Eventually(t, func() bool {
		nodeA.Broadcast(models.Notification{ID: 1, RecipientID: 5, Kind: models.NotificationKindTicketStatus, Title: "Status changed"})
		select {
		case notification := <-received:
			require.Equal(t, uint(5), notification.RecipientID)
			return true
		default:
			return false
		}
	}, 3*time.Second, 50*time.Millisecond)
}

func TestBroadcastIgnoresOwnRelayedEvents(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	svc := NewNotificationService(&recordingNotificationRepo{}, client, "lms", nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	stream, cleanup := svc.Subscribe(5)
	defer cleanup()

	svc.Broadcast(models.Notification{ID: 1, RecipientID: 5, Kind: models.NotificationKindTicketReply})

	// Exactly one local delivery; the relayed copy is dropped by source check.
	<-stream
	time.Sleep(200 * time.Millisecond)
	select {
	case duplicate := <-stream:
		t.Fatalf("received duplicate notification: %+v", duplicate)
	default:
	}
}
