// Package parser turns OPT mission logs and FPS performance logs into IngestionResults.
package parser

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/opt-statistics/backend/internal/models"
)

// Diagnostic causes. None of them abort a run.
var (
	ErrUnclassifiable    = errors.New("unclassifiable line")
	ErrUnresolvableEvent = errors.New("unresolvable event")
	ErrMissingGameTime   = errors.New("missing game time")
)

// ProgressCallback is called periodically during parsing to report progress.
type ProgressCallback func(linesProcessed int, bytesProcessed int64, totalBytes int64)

// Parser defines the interface for log parsers.
type Parser interface {
	// Name returns the unique name of the parser.
	Name() string
	// Kind returns the log kind the parser produces.
	Kind() models.LogKind
	// CanParse returns true if this parser can handle the given file.
	CanParse(filePath string) (bool, error)
	// Parse ingests the entire file. Skipped lines are reported to log, never returned.
	Parse(filePath string, log *slog.Logger, onProgress ProgressCallback) (*models.IngestionResult, error)
	// ParseText ingests a complete log blob.
	ParseText(text string, log *slog.Logger) *models.IngestionResult
}

// run is the state of one ingestion pass. Lines are fed in order with their 0-based index.
type run interface {
	feed(idx int, text string)
	finish() *models.IngestionResult
}

const (
	maxScannerBuffer = 1024 * 1024
	progressEvery    = 10000
	sniffLines       = 200
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log == nil {
		return discardLogger()
	}
	return log
}

// feedText splits text on \n and feeds every line to r.
func feedText(r run, text string) *models.IngestionResult {
	for idx, line := range strings.Split(text, "\n") {
		r.feed(idx, strings.TrimSuffix(line, "\r"))
	}
	return r.finish()
}

// feedFile streams the lines of filePath into r.
func feedFile(r run, filePath string, onProgress ProgressCallback) (*models.IngestionResult, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, err
	}
	totalBytes := fileInfo.Size()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, maxScannerBuffer), maxScannerBuffer)

	idx := 0
	var bytesRead int64
	for scanner.Scan() {
		line := scanner.Text()
		bytesRead += int64(len(line)) + 1

		r.feed(idx, strings.TrimSuffix(line, "\r"))
		idx++

		if onProgress != nil && idx%progressEvery == 0 {
			onProgress(idx, bytesRead, totalBytes)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if onProgress != nil {
		onProgress(idx, bytesRead, totalBytes)
	}

	return r.finish(), nil
}

// sniff reports whether any of the first non-blank lines of filePath satisfies match.
// Mission logs are game server logs where tagged lines are mixed with engine output,
// so a single hit is enough.
func sniff(filePath string, match func(string) bool) (bool, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, maxScannerBuffer), maxScannerBuffer)
	checked := 0
	for scanner.Scan() && checked < sniffLines {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		checked++
		if match(line) {
			return true, nil
		}
	}

	return false, scanner.Err()
}
