package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/rover/internal/pkg/metrics"
)

type fakeProvider struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	bucketErr error
	putErr    error
	puts      chan string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		puts:    make(chan string, 32),
	}
}

func (p *fakeProvider) CheckBucket(context.Context) error { return p.bucketErr }

func (p *fakeProvider) Put(_ context.Context, key string, data []byte, contentType string) error {
	defer func() { p.puts <- key }()
	if p.putErr != nil {
		return p.putErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.objects[key] = data
	p.types[key] = contentType
	return nil
}

func (p *fakeProvider) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.local/" + key, nil
}

func awaitPut(t *testing.T, p *fakeProvider) string {
	t.Helper()
	select {
	case key := <-p.puts:
		return key
	case <-time.After(5 * time.Second):
		t.Fatal("no upload")
		return ""
	}
}

func TestUploaderStoresPictures(t *testing.T) {
	p := newFakeProvider()
	u := NewUploader(p, "rover-sim-001", time.Second)
	before := testutil.ToFloat64(metrics.PicturesUploaded.WithLabelValues("success"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	u.Save("run-1/completed-001.jpg", []byte{0xff, 0xd8})
	assert.Equal(t, "rover-sim-001/run-1/completed-001.jpg", awaitPut(t, p))

	cancel()
	require.NoError(t, <-done)

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, []byte{0xff, 0xd8}, p.objects["rover-sim-001/run-1/completed-001.jpg"])
	assert.Equal(t, ContentTypeJPEG, p.types["rover-sim-001/run-1/completed-001.jpg"])
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PicturesUploaded.WithLabelValues("success")))
}

func TestUploaderCountsFailures(t *testing.T) {
	p := newFakeProvider()
	p.putErr = errors.New("connection refused")
	u := NewUploader(p, "r", time.Second)
	before := testutil.ToFloat64(metrics.PicturesUploaded.WithLabelValues("failed"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = u.Run(ctx) }()

	u.Save("a.jpg", []byte{1})
	awaitPut(t, p)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.PicturesUploaded.WithLabelValues("failed")) == before+1
	}, 5*time.Second, 10*time.Millisecond)
}

func TestUploaderDropsWhenFull(t *testing.T) {
	u := NewUploader(newFakeProvider(), "r", time.Second)
	before := testutil.ToFloat64(metrics.PicturesUploaded.WithLabelValues("dropped"))

	for i := 0; i < defaultQueueSize+3; i++ {
		u.Save("p.jpg", nil)
	}

	assert.Equal(t, before+3, testutil.ToFloat64(metrics.PicturesUploaded.WithLabelValues("dropped")))
}

func TestUploaderRequiresBucket(t *testing.T) {
	p := newFakeProvider()
	p.bucketErr = errors.New("access denied")

	err := NewUploader(p, "r", time.Second).Run(context.Background())
	assert.ErrorContains(t, err, "access denied")
}
