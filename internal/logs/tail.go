package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"shortsmith/internal/logging"
)

const (
	pollInterval = 250 * time.Millisecond
	maxLineBytes = 1 << 20
)

// TailOptions controls which lines Tail returns. A negative Offset reads the
// last Limit lines; otherwise reading starts at Offset.
type TailOptions struct {
	Offset int64
	Limit  int
	JobID  string
}

// TailResult carries matched lines and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads lines from path. A missing file yields no lines and offset 0 so
// followers can wait for the daemon to create it.
func Tail(path string, opts TailOptions) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return TailResult{}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{}, fmt.Errorf("log path %q is a directory", path)
	}

	start := opts.Offset
	limit := opts.Limit
	if start < 0 {
		start = 0
	} else {
		limit = 0
	}
	// Truncated or rotated files restart from the beginning.
	if start > info.Size() {
		start = 0
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return TailResult{}, fmt.Errorf("seek log file: %w", err)
	}

	match := matcher(opts.JobID)
	var ring lineRing
	if opts.Offset < 0 {
		if limit <= 0 {
			return TailResult{Offset: info.Size()}, nil
		}
		ring = newLineRing(limit)
	}
	var lines []string

	reader := bufio.NewReaderSize(file, 64*1024)
	offset := start
	for {
		raw, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return TailResult{}, fmt.Errorf("read log file: %w", err)
		}
		// Partial trailing lines stay unread until the writer finishes them.
		if !strings.HasSuffix(raw, "\n") {
			break
		}
		offset += int64(len(raw))
		line := strings.TrimRight(raw, "\r\n")
		if len(line) > maxLineBytes {
			line = line[:maxLineBytes]
		}
		if !match(line) {
			continue
		}
		if ring.cap() > 0 {
			ring.push(line)
		} else {
			lines = append(lines, line)
		}
	}
	if ring.cap() > 0 {
		lines = ring.lines()
	}
	return TailResult{Lines: lines, Offset: offset}, nil
}

// Follow prints the last opts.Limit lines, then polls for appended lines
// until ctx is done. emit is called once per line in file order.
func Follow(ctx context.Context, path string, opts TailOptions, emit func(string)) error {
	opts.Offset = -1
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		result, err := Tail(path, opts)
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			emit(line)
		}
		opts.Offset = result.Offset
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func matcher(jobID string) func(string) bool {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return func(string) bool { return true }
	}
	console := logging.FieldJobID + "=" + jobID
	jsonField := fmt.Sprintf("%q:%q", logging.FieldJobID, jobID)
	return func(line string) bool {
		return strings.Contains(line, console) || strings.Contains(line, jsonField)
	}
}

type lineRing struct {
	buf   []string
	next  int
	count int
}

func newLineRing(size int) lineRing {
	return lineRing{buf: make([]string, size)}
}

func (r *lineRing) cap() int { return len(r.buf) }

func (r *lineRing) push(line string) {
	r.buf[r.next] = line
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *lineRing) lines() []string {
	out := make([]string, 0, r.count)
	start := (r.next - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}
