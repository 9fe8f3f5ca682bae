package download

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NextIndex returns one more than the highest N among files named {prefix}_{N}.{ext} in dir, or 1 if there are
// none (including when dir doesn't exist). Names whose suffix isn't a positive integer are ignored.
func NextIndex(dir string, prefix string) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 1, nil
	} else if err != nil {
		return 0, err
	}
	highest := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if n, ok := parseIndex(entry.Name(), prefix); ok && n > highest {
			highest = n
		}
	}
	return highest + 1, nil
}

func parseIndex(name string, prefix string) (int, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	suffix := strings.TrimPrefix(stem, prefix+"_")
	if suffix == stem {
		return 0, false
	}
	n, err := strconv.Atoi(suffix)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
