// Package archive batches dispatched recordings and uploads them to object storage
package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/pushtalk/internal/session"
	"github.com/GriffinCanCode/pushtalk/internal/trace"
)

// Uploader stores one object.
type Uploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Batcher accumulates recordings and uploads them in batches.
type Batcher struct {
	uploader   Uploader
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []session.Take
	timer      *time.Timer
	stopped    bool
	wg         sync.WaitGroup
}

// NewBatcher creates an archive batcher.
func NewBatcher(uploader Uploader, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Batcher{
		uploader:   uploader,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]session.Take, 0, maxSize),
	}
}

// Archive queues a recording for upload. It implements session.Archiver.
func (b *Batcher) Archive(rec session.Take) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.items = append(b.items, rec)

	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	// Start or reset timer for delayed flush
	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if len(b.items) == 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	items := b.items
	b.items = make([]session.Take, 0, b.maxSize)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, span := trace.StartSpan(context.Background(), "archive_batch_flush")
		defer span.End()
		span.SetAttr("count", len(items))

		log := trace.Logger(ctx)
		stored := 0
		for _, rec := range items {
			uctx, cancel := context.WithTimeout(ctx, UploadTimeout)
			err := b.uploader.Put(uctx, Key(rec), rec.WAV, ContentType)
			cancel()
			if err != nil {
				span.SetAttr("error", err.Error())
				log.Warn("archive upload failed", "error", err, "session", rec.SessionID, "kind", rec.Kind)
				continue
			}
			stored++
		}
		log.Debug("archive batch stored", "stored", stored, "submitted", len(items))
	}()
}

// Key names the object for rec: date folders, then session, kind and a
// random suffix so segments of one session never collide.
func Key(rec session.Take) string {
	at := rec.At.UTC()
	return fmt.Sprintf("%s/%06d-%s-%s.wav", at.Format("2006/01/02"), rec.SessionID, rec.Kind, uuid.NewString())
}

// Flush forces immediate upload of pending recordings.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop flushes remaining recordings and waits for uploads to finish.
// Recordings archived afterwards are dropped.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.flushLocked()
	b.mu.Unlock()
	b.wg.Wait()
}
