package simulation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SymlinkLatest points <dir>/latest at the lexically newest
// date-named subdirectory. Run directories sort by name because they
// start with a timestamp; entries not starting with a digit are
// ignored. Returns the target name, or "" when there was nothing to
// link (the existing link is then left alone).
func SymlinkLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var dated []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || len(name) == 0 || name[0] < '0' || name[0] > '9' {
			continue
		}
		dated = append(dated, name)
	}
	if len(dated) == 0 {
		return "", nil
	}
	sort.Strings(dated)
	target := dated[len(dated)-1]

	link := filepath.Join(dir, "latest")
	// Whatever sits there now loses, whether link or empty dir.
	_ = os.Remove(link)
	if err := os.Symlink(target, link); err != nil {
		return "", fmt.Errorf("symlink latest -> %s: %w", target, err)
	}
	return target, nil
}
