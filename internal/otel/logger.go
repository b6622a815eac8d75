package otel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// EventsFile is the journal's file name inside the data directory.
const EventsFile = "showmore.events.jsonl"

// queueSize bounds events waiting for the writer. A crawl emits one
// found or miss event per probe, so a full pass of the default budget
// fits many times over.
const queueSize = 4096

// pending is one queued event: the encoded line for the file and the
// event itself for the ring, where Dur survives unmarshalled.
type pending struct {
	line []byte
	ev   Event
	disk bool
}

// Logger journals events as JSON lines. Emit never blocks: events go to a
// queue drained by a single writer goroutine, and overflow is counted in
// Dropped. Events below the file level reach the ring buffer only.
//
// Locking: mu guards ring and fileLevel. The writer copies ring under mu
// and pushes after releasing it, so the two locks never nest.
type Logger struct {
	session string
	queue   chan pending
	out     io.Writer
	file    *os.File // owned when opened by OpenFile
	done    chan struct{}

	mu        sync.Mutex
	ring      *RingBuffer
	fileLevel Level

	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// OpenFile returns a Logger appending to path. The directory is created
// when missing.
func OpenFile(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create event log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	l := NewLogger(f)
	l.file = f
	return l, nil
}

// NewLogger starts a Logger writing to w. Close flushes it.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		session:   uuid.NewString(),
		queue:     make(chan pending, queueSize),
		out:       w,
		done:      make(chan struct{}),
		fileLevel: LevelDebug,
	}
	go l.write()
	return l
}

// NewNullLogger returns a Logger that keeps nothing on disk. Attach a
// ring buffer to inspect its events.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// SessionID identifies this process run in every journalled line.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.session
}

// SetFileLevel drops events below level from the file. The ring buffer
// still receives them.
func (l *Logger) SetFileLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.fileLevel = level
	l.mu.Unlock()
}

// SetRingBuffer attaches buf for the debug overlay.
func (l *Logger) SetRingBuffer(buf *RingBuffer) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.ring = buf
	l.mu.Unlock()
}

func (l *Logger) write() {
	defer close(l.done)
	for p := range l.queue {
		if p.disk {
			if _, err := l.out.Write(p.line); err != nil {
				l.dropped.Add(1)
			}
		}

		l.mu.Lock()
		ring := l.ring
		l.mu.Unlock()
		if ring != nil {
			ring.Push(p.ev)
		}
	}
}

// Emit queues e, stamping Time when unset and the logger's session ID.
// Safe on a nil Logger. Events emitted after Close are dropped.
func (l *Logger) Emit(e Event) {
	if l == nil {
		return
	}
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}
	// Close may win the race after the check above.
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	l.mu.Lock()
	disk := rank(e.Level) >= rank(l.fileLevel)
	l.mu.Unlock()

	p := pending{ev: e, disk: disk}
	if disk {
		line, err := json.Marshal(e)
		if err != nil {
			l.dropped.Add(1)
			return
		}
		p.line = append(line, '\n')
	}

	select {
	case l.queue <- p:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info event with a message.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn event with a message.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error event. A nil err leaves Err empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// Dropped counts events lost to a full queue, encoding or write errors.
func (l *Logger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close drains the queue, closes a file opened by OpenFile and reports
// lost events on stderr. Safe to call more than once.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.done

		if l.file != nil {
			l.file.Close()
		}
		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "showmore: %d journal events dropped (session %s)\n", n, l.session)
		}
	})
}

func rank(level Level) int {
	switch level {
	case LevelInfo:
		return 1
	case LevelWarn:
		return 2
	case LevelError:
		return 3
	}
	return 0
}
