package socket

import (
	"bytes"
	"io"
	"strings"
)

// ReadLatest reads r to EOF and returns the last non-empty, trimmed line.
func ReadLatest(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return latestLine(data), nil
}

func latestLine(data []byte) string {
	lines := bytes.Split(data, []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(decodeText(lines[i])); line != "" {
			return line
		}
	}
	return ""
}
