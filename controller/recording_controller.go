package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"sensor-bridge/models"
	"sensor-bridge/utils"
	"sensor-bridge/views"
)

// recordedFrame is copied by value through the queue so Offer never
// allocates.
type recordedFrame struct {
	ts     uint64
	n      int
	values [models.MaxFrameValues]int16
}

// FrameRecorder writes every acquired frame to a CSV file in a session
// directory. Offer is called from the acquisition loop and never blocks:
// when the queue is full the frame is dropped and counted.
type FrameRecorder struct {
	cfg        utils.RecordConfig
	sessionDir string
	writer     *views.CSVWriter
	queue      chan recordedFrame

	cancel context.CancelFunc
	wg     sync.WaitGroup

	offered   uint64
	dropped   uint64
	flushErrs uint64
}

// NewFrameRecorder creates the session directory and the frames.csv file.
func NewFrameRecorder(cfg utils.RecordConfig, columns []string) (*FrameRecorder, error) {
	sessionDir := filepath.Join(cfg.Dir, utils.SessionName(cfg.SessionPrefix))
	if !cfg.Overwrite {
		if _, err := os.Stat(sessionDir); err == nil {
			return nil, fmt.Errorf("session dir %s already exists (overwrite=false)", sessionDir)
		}
	}
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	w, err := views.NewCSVWriter(filepath.Join(sessionDir, "frames.csv"), cfg.BufferSizeKB*1024, columns)
	if err != nil {
		return nil, err
	}
	queue := cfg.QueueFrames
	if queue <= 0 {
		queue = 1024
	}
	utils.L().Info("frame recorder ready  session=%s", sessionDir)
	return &FrameRecorder{
		cfg:        cfg,
		sessionDir: sessionDir,
		writer:     w,
		queue:      make(chan recordedFrame, queue),
	}, nil
}

// Start runs the writer and the periodic flusher until Stop.
func (r *FrameRecorder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		flushMs := r.cfg.FlushMs
		if flushMs <= 0 {
			flushMs = 200
		}
		ticker := time.NewTicker(time.Duration(flushMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.flush()
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-ctx.Done():
				r.drain()
				return
			case f := <-r.queue:
				r.writer.WriteFrame(f.ts, f.values[:f.n])
			}
		}
	}()
}

// Offer queues a copy of values stamped with tsMs.
func (r *FrameRecorder) Offer(tsMs uint64, values []int16) {
	atomic.AddUint64(&r.offered, 1)
	f := recordedFrame{ts: tsMs}
	f.n = copy(f.values[:], values)
	select {
	case r.queue <- f:
	default:
		atomic.AddUint64(&r.dropped, 1)
	}
}

func (r *FrameRecorder) drain() {
	for {
		select {
		case f := <-r.queue:
			r.writer.WriteFrame(f.ts, f.values[:f.n])
		default:
			return
		}
	}
}

func (r *FrameRecorder) flush() {
	if err := r.writer.Flush(); err != nil {
		if atomic.AddUint64(&r.flushErrs, 1) == 1 {
			utils.L().Warn("frame recorder: flush: %v", err)
		}
	}
}

// Stop waits for the writer to drain the queue, then closes the file.
func (r *FrameRecorder) Stop() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.drain()
	err := r.writer.Close()
	utils.L().Info("frame recorder stopped  (rows=%d, dropped=%d, session=%s)",
		r.writer.Rows(), atomic.LoadUint64(&r.dropped), r.sessionDir)
	return err
}

// SessionDir returns the path of the active session directory.
func (r *FrameRecorder) SessionDir() string { return r.sessionDir }

// Stats returns offered, written and dropped frame counts.
func (r *FrameRecorder) Stats() (offered, written, dropped uint64) {
	return atomic.LoadUint64(&r.offered), r.writer.Rows(), atomic.LoadUint64(&r.dropped)
}
