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
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// TailOptions controls which lines Tail returns.
type TailOptions struct {
	// Offset is the byte position to read from. A negative offset returns the
	// last Limit matching lines of the file.
	Offset int64
	Limit  int
	// Match filters lines. Nil keeps every line.
	Match func(line string) bool
	// Follow waits up to Wait for new lines when none are available.
	Follow bool
	Wait   time.Duration
}

// TailResult holds the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// MatchRun keeps lines that mention runID in either log format.
func MatchRun(runID string) func(string) bool {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil
	}
	return func(line string) bool {
		return strings.Contains(line, runID)
	}
}

// Tail reads path according to opts. A missing file yields no lines.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if opts.Follow && opts.Wait > 0 {
				return waitForLines(ctx, path, 0, opts.Wait, opts.Match)
			}
			return TailResult{}, nil
		}
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	var result TailResult
	if opts.Offset < 0 {
		result, err = readLast(path, opts.Limit, opts.Match)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated; resume at the end.
			offset = info.Size()
		}
		result, err = readFrom(path, offset, opts.Match)
	}
	if err != nil {
		return result, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait, opts.Match)
	}
	return result, nil
}

func scanLines(r io.Reader, match func(string) bool, emit func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if match == nil || match(line) {
			emit(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log file: %w", err)
	}
	return nil
}

func readLast(path string, limit int, match func(string) bool) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return TailResult{}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return TailResult{}, fmt.Errorf("seek log file: %w", err)
		}
		return TailResult{Offset: end}, nil
	}

	ring := make([]string, limit)
	count := 0
	if err := scanLines(file, match, func(line string) {
		ring[count%limit] = line
		count++
	}); err != nil {
		return TailResult{}, err
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return TailResult{}, fmt.Errorf("determine log offset: %w", err)
	}

	n := min(count, limit)
	lines := make([]string, n)
	start := count - n
	for i := range lines {
		lines[i] = ring[(start+i)%limit]
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

func readFrom(path string, offset int64, match func(string) bool) (TailResult, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return TailResult{}, nil
		}
		return TailResult{Offset: offset}, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("seek log file: %w", err)
	}
	var lines []string
	if err := scanLines(file, match, func(line string) { lines = append(lines, line) }); err != nil {
		return TailResult{Offset: offset}, err
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return TailResult{Offset: offset}, fmt.Errorf("determine log offset: %w", err)
	}
	return TailResult{Lines: lines, Offset: end}, nil
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, match func(string) bool) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		result, err := readFrom(path, offset, match)
		if err != nil || len(result.Lines) > 0 || time.Now().After(deadline) {
			return result, err
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return TailResult{Offset: offset}, ctx.Err()
		case <-ticker.C:
		}
	}
}
