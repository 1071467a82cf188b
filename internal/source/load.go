// Package source reads Codex logs from disk or stdin into analysis reports.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"codex-audit/internal/analysis"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

type Loader struct {
	stdin  io.Reader
	logger *log.Logger
}

// New returns a loader that reads "-" from stdin. A nil logger discards.
func New(stdin io.Reader, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	return &Loader{stdin: stdin, logger: logger}
}

// Load reads path into a report:
//
//	"-"        JSON document on stdin
//	*.json     JSON document
//	*.jsonl    one rollout file, one session (history.jsonl: one per prompt session)
//	directory  every rollout found by Discover
func (l *Loader) Load(ctx context.Context, path string) (analysis.Report, Stats, error) {
	if path == Stdin {
		r, err := analysis.Decode(l.stdin)
		return r, Stats{Files: 1}, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return analysis.Report{}, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	if stat.IsDir() {
		return l.loadDir(ctx, path)
	}

	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		kind := KindRollout
		if strings.EqualFold(filepath.Base(path), "history.jsonl") {
			kind = KindHistory
		}
		sessions, stats, err := l.loadFile(ctx, File{Path: path, Kind: kind})
		if err != nil {
			return analysis.Report{}, stats, err
		}
		return analysis.Report{Sessions: sessions}, stats, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return analysis.Report{}, Stats{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	r, err := analysis.Decode(f)
	if err != nil {
		return analysis.Report{}, Stats{Files: 1}, fmt.Errorf("decode %s: %w", path, err)
	}
	return r, Stats{Files: 1}, nil
}

func (l *Loader) loadDir(ctx context.Context, dir string) (analysis.Report, Stats, error) {
	files, err := Discover(dir)
	if err != nil {
		return analysis.Report{}, Stats{}, fmt.Errorf("discover %s: %w", dir, err)
	}
	report := analysis.Report{Sessions: make([]analysis.Session, 0, len(files))}
	var total Stats
	for _, file := range files {
		sessions, stats, err := l.loadFile(ctx, file)
		total.add(stats)
		if err != nil {
			if ctx.Err() != nil {
				return analysis.Report{}, total, ctx.Err()
			}
			l.logger.Warn("skipping source", "path", file.Path, "err", err)
			continue
		}
		report.Sessions = append(report.Sessions, sessions...)
	}
	l.logger.Debug("loaded directory", "dir", dir, "files", total.Files, "sessions", len(report.Sessions), "skipped_lines", total.Skipped)
	return report, total, nil
}

func (l *Loader) loadFile(ctx context.Context, file File) ([]analysis.Session, Stats, error) {
	f, err := os.Open(file.Path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open %s: %w", file.Path, err)
	}
	defer f.Close()

	var (
		sessions []analysis.Session
		stats    Stats
	)
	if file.Kind == KindHistory {
		sessions, stats, err = ReadHistory(ctx, f)
	} else {
		var s analysis.Session
		s, stats, err = ReadRollout(ctx, f, file.Path)
		sessions = []analysis.Session{s}
	}
	if err != nil {
		return nil, stats, err
	}
	if stats.Skipped > 0 {
		l.logger.Warn("skipped unparseable lines", "path", file.Path, "skipped", stats.Skipped, "lines", stats.Lines)
	}
	return sessions, stats, nil
}
