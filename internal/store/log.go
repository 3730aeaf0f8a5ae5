// Package store implements a segmented, memory-mapped, append-only log:
// publishes and pulls on the topic registry are mirrored here as
// best-effort, line-structured, durable-ish records.
package store

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	api "github.com/mensah-dev/brokerd/api/v1"
	"github.com/mensah-dev/brokerd/internal/telemetry"
)

const (
	// DefaultBaseName is used when a caller doesn't override it.
	DefaultBaseName = "broker_log"
	// DefaultSegmentSize is used when a caller doesn't override it.
	DefaultSegmentSize uint64 = 1 << 20 // 1,048,576 bytes
	// defaultFlushInterval is the periodic flush cadence.
	defaultFlushInterval = time.Second
)

// Config configures a SegmentedLog. Zero values are replaced with the
// package defaults by New.
type Config struct {
	BaseName      string
	SegmentSize   uint64
	FlushInterval time.Duration
	Clock         clock.Clock
}

func (c *Config) applyDefaults() {
	if c.BaseName == "" {
		c.BaseName = DefaultBaseName
	}
	if c.SegmentSize == 0 {
		c.SegmentSize = DefaultSegmentSize
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = defaultFlushInterval
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
}

// SegmentedLog is a durable, line-structured, append-only log partitioned
// into fixed-size memory-mapped segment files. All mutating and reading
// public methods serialize on mu.
type SegmentedLog struct {
	mu  sync.Mutex
	dir string
	cfg Config

	current      *segment
	currentIndex uint64
	currentOff   uint64

	stop     chan struct{}
	flushing sync.WaitGroup
	closeOnce sync.Once
}

// New opens or creates a segmented log rooted at dir. It replays the
// metadata file if present and valid, otherwise starts fresh at segment
// 0, and launches the background flush task.
func New(dir string, cfg Config) (*SegmentedLog, error) {
	cfg.applyDefaults()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	index, offset := uint64(0), uint64(0)
	if idx, off, ok := loadMeta(dir, cfg.BaseName); ok {
		if _, err := os.Stat(segmentPath(dir, cfg.BaseName, idx)); err == nil {
			index, offset = idx, off
		}
	}

	seg, err := createOrOpenSegment(dir, cfg.BaseName, index, cfg.SegmentSize)
	if err != nil {
		return nil, err
	}

	l := &SegmentedLog{
		dir:          dir,
		cfg:          cfg,
		current:      seg,
		currentIndex: index,
		currentOff:   offset,
		stop:         make(chan struct{}),
	}

	l.flushing.Add(1)
	go l.flushLoop()

	return l, nil
}

func (l *SegmentedLog) flushLoop() {
	defer l.flushing.Done()
	ticker := l.cfg.Clock.Ticker(l.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			if err := l.current.flush(); err != nil {
				logFallback("error", "periodic flush failed: "+err.Error())
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Append composes and writes a single record. It never returns an error
// to the caller: oversized records and I/O failures are logged to
// stderr and swallowed.
func (l *SegmentedLog) Append(level Level, message string) {
	start := l.cfg.Clock.Now()
	defer func() {
		ms := float64(l.cfg.Clock.Now().Sub(start)) / float64(time.Millisecond)
		telemetry.RecordAppendLatency(context.Background(), ms)
	}()

	l.mu.Lock()
	defer l.mu.Unlock()

	record := formatRecord(level, message, l.cfg.Clock.Now())
	rlen := uint64(len(record))

	if rlen >= l.cfg.SegmentSize {
		logFallback("error", (api.ErrRecordTooLarge{Len: len(record), SegmentSize: l.cfg.SegmentSize}).Error())
		return
	}

	if l.currentOff+rlen >= l.cfg.SegmentSize {
		if !l.rotate() {
			logFallback("error", "segment rotation failed, dropping record")
			return
		}
	}

	l.current.writeAt(l.currentOff, []byte(record))
	l.currentOff += rlen
}

// rotate flushes and closes the active segment and opens the next one,
// falling back to segment 0 once before giving up. On failure the log's
// prior state (current segment, index, offset) is left untouched.
func (l *SegmentedLog) rotate() bool {
	if err := l.current.flush(); err != nil {
		logFallback("error", "flush before rotation failed: "+err.Error())
	}

	nextIndex := l.currentIndex + 1
	next, err := createOrOpenSegment(l.dir, l.cfg.BaseName, nextIndex, l.cfg.SegmentSize)
	if err != nil {
		logFallback("error", "failed to open next segment, retrying at segment 0: "+err.Error())
		nextIndex = 0
		next, err = createOrOpenSegment(l.dir, l.cfg.BaseName, nextIndex, l.cfg.SegmentSize)
		if err != nil {
			logFallback("error", "failed to open fallback segment 0: "+err.Error())
			return false
		}
	}

	old := l.current
	l.current = next
	l.currentIndex = nextIndex
	l.currentOff = 0
	saveMeta(l.dir, l.cfg.BaseName, l.currentIndex, l.currentOff)

	if err := old.close(); err != nil {
		logFallback("error", "failed to close rotated-out segment: "+err.Error())
	}
	return true
}

// ReadNext reads the next record starting at cursor, advancing cursor in
// place iff a record is found.
func (l *SegmentedLog) ReadNext(cursor *Cursor) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cursor.SegmentIndex > l.currentIndex {
		return nil, false
	}

	var seg *segment
	if cursor.SegmentIndex == l.currentIndex {
		seg = l.current
	} else {
		s, err := openSegmentReadOnly(l.dir, l.cfg.BaseName, cursor.SegmentIndex)
		if err != nil {
			logFallback("error", "failed to open segment for cursor read: "+err.Error())
			return nil, false
		}
		defer s.close()
		seg = s
	}

	data := seg.mmap
	bound := l.cfg.SegmentSize
	if uint64(len(data)) < bound {
		bound = uint64(len(data))
	}

	for i := cursor.Offset; i < bound; i++ {
		if data[i] == '\n' {
			record := make([]byte, i-cursor.Offset)
			copy(record, data[cursor.Offset:i])

			cursor.Offset = i + 1
			if cursor.Offset == l.cfg.SegmentSize {
				cursor.SegmentIndex++
				cursor.Offset = 0
			}
			return record, true
		}
	}
	return nil, false
}

// ReadAll returns every newline-terminated record in segmentIndex,
// excluding each record's trailing newline, stopping at the first
// unterminated tail.
func (l *SegmentedLog) ReadAll(segmentIndex uint64) [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	var seg *segment
	var err error
	if segmentIndex == l.currentIndex {
		if flushErr := l.current.flush(); flushErr != nil {
			logFallback("error", "flush before readAll failed: "+flushErr.Error())
		}
		seg = l.current
	} else {
		seg, err = openSegmentReadOnly(l.dir, l.cfg.BaseName, segmentIndex)
	}

	if err != nil {
		logFallback("error", "failed to open segment for readAll: "+err.Error())
		return nil
	}
	if seg != l.current {
		defer seg.close()
	}

	var records [][]byte
	start := uint64(0)
	data := seg.mmap
	for i := uint64(0); i < uint64(len(data)); i++ {
		if data[i] == '\n' {
			rec := make([]byte, i-start)
			copy(rec, data[start:i])
			records = append(records, rec)
			start = i + 1
		}
	}
	return records
}

// CurrentSegmentIndex reports the index of the active segment, primarily
// useful for tests walking the log with ReadAll.
func (l *SegmentedLog) CurrentSegmentIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentIndex
}

// Close stops the flush task, flushes and unmaps the active segment, and
// persists metadata. It is idempotent.
func (l *SegmentedLog) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.stop)
		l.flushing.Wait()

		l.mu.Lock()
		defer l.mu.Unlock()

		if ferr := l.current.flush(); ferr != nil {
			logFallback("error", "flush on close failed: "+ferr.Error())
		}
		saveMeta(l.dir, l.cfg.BaseName, l.currentIndex, l.currentOff)
		err = l.current.close()
	})
	return err
}
