package storage

import (
	"context"
	"path"
	"time"

	"github.com/autopeer-io/rover/internal/pkg/metrics"
	"github.com/autopeer-io/rover/pkg/log"
)

const defaultQueueSize = 16

type picture struct {
	key  string
	data []byte
}

// Uploader hands pictures to a Provider from its own goroutine so the
// scheduler never waits on the network. Pictures that do not fit the queue
// are dropped.
type Uploader struct {
	provider Provider
	prefix   string
	timeout  time.Duration
	queue    chan picture
	log      log.Logger
}

// NewUploader creates an Uploader storing every picture under prefix.
func NewUploader(p Provider, prefix string, timeout time.Duration) *Uploader {
	return &Uploader{
		provider: p,
		prefix:   prefix,
		timeout:  timeout,
		queue:    make(chan picture, defaultQueueSize),
		log:      log.WithName("uploader"),
	}
}

// Save queues a picture. It never blocks.
func (u *Uploader) Save(name string, jpeg []byte) {
	pic := picture{key: path.Join(u.prefix, name), data: jpeg}
	select {
	case u.queue <- pic:
	default:
		metrics.PicturesUploaded.WithLabelValues("dropped").Inc()
		u.log.Warn("Upload queue full, picture dropped", "key", pic.key)
	}
}

// Run uploads queued pictures until ctx ends.
func (u *Uploader) Run(ctx context.Context) error {
	if err := u.provider.CheckBucket(ctx); err != nil {
		return err
	}
	u.log.Info("Picture uploader started", "prefix", u.prefix)

	for {
		select {
		case <-ctx.Done():
			if n := len(u.queue); n > 0 {
				u.log.Warn("Uploader stopped with pending pictures", "count", n)
			}
			return nil
		case pic := <-u.queue:
			u.upload(ctx, pic)
		}
	}
}

func (u *Uploader) upload(ctx context.Context, pic picture) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if err := u.provider.Put(ctx, pic.key, pic.data, ContentTypeJPEG); err != nil {
		metrics.PicturesUploaded.WithLabelValues("failed").Inc()
		u.log.Error(err, "Picture upload failed", "key", pic.key)
		return
	}
	metrics.PicturesUploaded.WithLabelValues("success").Inc()
	u.log.Info("Picture uploaded", "key", pic.key, "bytes", len(pic.data))
}
