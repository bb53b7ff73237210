package source

import (
	"testing"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuildsOneEntryPerURL(t *testing.T) {
	urls := []string{"http://a.local/stream", "http://b.local/stream", "http://c.local/stream"}
	reg := NewRegistry(urls, ReaderOptions{}, metrics.New())

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, urls, reg.URLs())

	for id := 1; id <= 3; id++ {
		buf, ok := reg.Buffer(id)
		require.True(t, ok)
		assert.Equal(t, id, buf.Status().SourceID)
		assert.Equal(t, urls[id-1], buf.Status().URL)
	}

	_, ok := reg.Buffer(0)
	assert.False(t, ok)
	_, ok = reg.Buffer(4)
	assert.False(t, ok)
}

func TestRegistryStatusSnapshotOrder(t *testing.T) {
	reg := NewRegistry([]string{"http://a/1", "http://b/2"}, ReaderOptions{}, metrics.New())

	buf, _ := reg.Buffer(2)
	buf.markSuccess()

	statuses := reg.StatusSnapshot()
	require.Len(t, statuses, 2)
	assert.Equal(t, 1, statuses[0].SourceID)
	assert.False(t, statuses[0].Online)
	assert.Equal(t, 2, statuses[1].SourceID)
	assert.True(t, statuses[1].Online)
}

func TestRegistryStartStopAll(t *testing.T) {
	srv := fakeStream(t, 1)
	defer srv.Close()

	reg := NewRegistry([]string{srv.URL, srv.URL}, ReaderOptions{
		ConnectTimeout: time.Second,
	}, metrics.New())

	reg.StartAll()

	done := make(chan struct{})
	go func() {
		reg.StopAll()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("StopAll did not join all readers")
	}
}
