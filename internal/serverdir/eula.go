package serverdir

import (
	"errors"
	"io/fs"
	"regexp"
	"strings"
)

var eulaPattern = regexp.MustCompile(`(?i)eula\s*=\s*(true|false)`)

// ReadEULA reports whether eula.txt accepts the license. A missing file
// counts as not accepted.
func ReadEULA(path string) (bool, error) {
	raw, err := ReadText(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	m := eulaPattern.FindSubmatch(raw)
	if m == nil {
		return false, nil
	}
	return strings.EqualFold(string(m[1]), "true"), nil
}

// WriteEULA writes eula.txt with the given acceptance.
func WriteEULA(path string, accepted bool) error {
	value := "false"
	if accepted {
		value = "true"
	}
	content := "# Generated by craftpanel\n# https://aka.ms/MinecraftEULA\n\neula=" + value + "\n"
	return WriteFileAtomic(path, []byte(content))
}
