package publish

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"todoblock/internal/view"
)

type WriteOptions struct {
	Overwrite bool
	ActorID   string
}

type WriteResult struct {
	Written []string `json:"written"`
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is the export file name for an actor's list.
func FileName(actorID string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(actorID), "-"), "-.")
	if name == "" {
		name = "list"
	}
	return "todo-" + name + ".md"
}

// WriteList writes vm as markdown into toDir.
func WriteList(vm view.ViewModel, l Labels, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	toDir = filepath.Clean(toDir)
	if err := os.MkdirAll(toDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	outPath := filepath.Join(toDir, FileName(opt.ActorID))
	if err := writeFile(outPath, []byte(RenderMarkdown(vm, l)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	return WriteResult{Written: []string{outPath}}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
