package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
)

func setupRedis(t *testing.T) *progress.RedisPublisher {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	pub, err := progress.NewRedisPublisher("redis://"+host+":"+port.Port(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })
	return pub
}

func TestEventsChannel(t *testing.T) {
	assert.Equal(t, "faktur:jobs:abc:events", progress.EventsChannel("abc"))
	assert.Equal(t, "faktur:jobs:abc:percent", progress.PercentKey("abc"))
}

func TestRedisPublisher_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pub := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	events, err := pub.Subscribe(ctx, "job-1")
	require.NoError(t, err)

	rep := pub.Reporter("job-1")
	rep.Log("Processing file 1 of 2")
	rep.Progress(47)

	var got []progress.Event
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-ctx.Done():
			t.Fatal("timed out waiting for events")
		}
	}
	assert.Equal(t, []progress.Event{progress.LogEvent("Processing file 1 of 2"), progress.ProgressEvent(47)}, got)

	pct, ok, err := pub.LastPercent(ctx, "job-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 47, pct)
}

func TestRedisPublisher_LastPercentMissing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pub := setupRedis(t)

	_, ok, err := pub.LastPercent(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}
