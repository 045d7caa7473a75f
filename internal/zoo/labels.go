package zoo

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads a class table: one label per line, line number = class
// id. Blank lines and lines starting with '#' are skipped without
// consuming an id.
func LoadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open labels %s: %w", path, err)
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels %s: %w", path, err)
	}
	return labels, nil
}

// Label returns the name for a class id, or the id itself when no table
// covers it.
func Label(labels []string, classID int) string {
	if classID >= 0 && classID < len(labels) {
		return labels[classID]
	}
	return fmt.Sprintf("class %d", classID)
}
