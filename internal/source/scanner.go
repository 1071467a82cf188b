package source

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File is one discovered log file.
type File struct {
	Path string
	Kind Kind
}

type Kind string

const (
	KindRollout Kind = "rollout"
	KindHistory Kind = "history"
)

// Discover finds rollout-*.jsonl files under root/sessions, or under root
// itself when it has no sessions directory. With no rollouts it falls back
// to root/history.jsonl. Paths are sorted; unreadable entries are skipped.
func Discover(root string) ([]File, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, err
	}
	walkRoot := filepath.Join(root, "sessions")
	if stat, err := os.Stat(walkRoot); err != nil || !stat.IsDir() {
		walkRoot = root
	}

	rollouts := make([]File, 0, 64)
	_ = filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if isRolloutName(d.Name()) {
			rollouts = append(rollouts, File{Path: path, Kind: KindRollout})
		}
		return nil
	})

	sort.Slice(rollouts, func(i, j int) bool {
		return rollouts[i].Path < rollouts[j].Path
	})

	if len(rollouts) > 0 {
		return rollouts, nil
	}

	historyPath := filepath.Join(root, "history.jsonl")
	if stat, err := os.Stat(historyPath); err == nil && !stat.IsDir() {
		return []File{{Path: historyPath, Kind: KindHistory}}, nil
	}
	return nil, nil
}

func isRolloutName(name string) bool {
	name = strings.ToLower(name)
	return strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl")
}
