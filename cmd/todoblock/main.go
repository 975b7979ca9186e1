package main

import (
	"os"
	"strings"

	"todoblock/internal/cli"
)

// itemVerbs may be used without the "items" prefix: `todoblock add milk`.
var itemVerbs = map[string]bool{
	"list": true, "add": true, "edit": true, "toggle": true, "done": true, "delete": true,
	"pin": true, "clear-done": true, "hide-done": true, "group": true,
}

// rewriteItemShortcuts inserts "items" before a bare item verb. Cobra treats
// the first non-flag token as the subcommand, so persistent flags given first
// (`todoblock --actor bob add milk`) have to be skipped.
func rewriteItemShortcuts(argv []string) []string {
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config": true,
		"--actor":  true,
		"--server": true,
		"--locale": true,
		"--format": true,
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}
		if !itemVerbs[a] {
			return argv
		}
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "items")
		out = append(out, argv[i:]...)
		return out
	}
	return argv
}

func main() {
	os.Args = rewriteItemShortcuts(os.Args)

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
