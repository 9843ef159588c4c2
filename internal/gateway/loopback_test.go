package gateway

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/internal/domain/event"
	"hermes/internal/domain/opinion"
	"hermes/pkg/errors"
)

func TestLoopbackFeedThenPull(t *testing.T) {
	gw := NewLoopback(4)
	defer gw.Close()

	ev := event.New(event.TypeMarketUpdate, "feed")
	require.NoError(t, gw.Feed(ev))

	got, err := gw.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
}

func TestLoopbackPullEmptyReportsNoEvent(t *testing.T) {
	gw := NewLoopback(4)
	defer gw.Close()

	_, err := gw.Pull(context.Background())
	assert.True(t, errors.Is(err, errors.ErrNoEvent))
}

func TestLoopbackPullHonorsContext(t *testing.T) {
	gw := NewLoopback(4)
	defer gw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Pull(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoopbackPushDeliversDecision(t *testing.T) {
	gw := NewLoopback(4)
	defer gw.Close()

	d := opinion.Decision{EventID: uuid.New(), Kind: opinion.KindUnanimous}
	require.NoError(t, gw.Push(context.Background(), d))

	got := <-gw.Decisions()
	assert.Equal(t, d.EventID, got.EventID)
	assert.Equal(t, opinion.KindUnanimous, got.Kind)
}

func TestLoopbackQueuedEventsDrainAfterClose(t *testing.T) {
	gw := NewLoopback(4)

	ev := event.New(event.TypeClientRequest, "last one in")
	require.NoError(t, gw.Feed(ev))
	require.NoError(t, gw.Close())

	got, err := gw.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)

	_, err = gw.Pull(context.Background())
	assert.True(t, errors.Is(err, errors.ErrGatewayClosed))
}

func TestLoopbackFeedFullBufferFailsFast(t *testing.T) {
	gw := NewLoopback(1)

	require.NoError(t, gw.Feed(event.New(event.TypeMarketUpdate, "fits")))

	err := gw.Feed(event.New(event.TypeMarketUpdate, "overflow"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInternal))

	// A rejected feed must not leave the gateway wedged.
	require.NoError(t, gw.Close())

	got, err := gw.Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fits", got.Description)
}

func TestLoopbackClosedRejectsFeedAndPush(t *testing.T) {
	gw := NewLoopback(4)
	require.NoError(t, gw.Close())
	require.NoError(t, gw.Close(), "closing twice is harmless")

	assert.True(t, errors.Is(gw.Feed(event.New(event.TypeMarketUpdate, "x")), errors.ErrGatewayClosed))
	assert.True(t, errors.Is(gw.Push(context.Background(), opinion.Decision{}), errors.ErrGatewayClosed))
}
