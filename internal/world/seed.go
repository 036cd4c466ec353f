package world

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadSharedMemories reads the newline-delimited seed file of world facts
// that every agent starts out knowing. Blank lines and #-comments are
// skipped. A missing path yields no facts rather than an error.
func LoadSharedMemories(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open shared memory file %s: %w", path, err)
	}
	defer f.Close()

	var facts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		facts = append(facts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read shared memory file %s: %w", path, err)
	}
	return facts, nil
}
