package util

import (
	"errors"
	"path"
	"strings"
)

const maxFileNameLen = 128

// SanitizeFileName strips directories and control characters from a client
// supplied file name. Names that end up empty or only dots are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	s = path.Base(s)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if strings.Trim(s, ".") == "" || s == "/" {
		return "", errors.New("invalid file name")
	}
	if r := []rune(s); len(r) > maxFileNameLen {
		s = string(r[:maxFileNameLen])
	}
	return s, nil
}
