package serverdir

import (
	"errors"
	"io/fs"
	"strings"
)

// EntryKind classifies one line of server.properties.
type EntryKind int

const (
	EntryBlank EntryKind = iota
	EntryComment
	EntryOther
	EntryPair
)

// Entry is one line of server.properties. Raw keeps the original text so
// untouched lines are written back verbatim.
type Entry struct {
	Kind  EntryKind
	Key   string
	Value string
	Raw   string
}

// Properties is a parsed server.properties file in file order.
type Properties struct {
	Entries []Entry
}

// ParseProperties splits content into entries.
func ParseProperties(content string) *Properties {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	p := &Properties{Entries: make([]Entry, 0, len(lines))}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			p.Entries = append(p.Entries, Entry{Kind: EntryBlank, Raw: line})
		case strings.HasPrefix(trimmed, "#"):
			p.Entries = append(p.Entries, Entry{Kind: EntryComment, Raw: line})
		default:
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				p.Entries = append(p.Entries, Entry{Kind: EntryOther, Raw: line})
				continue
			}
			p.Entries = append(p.Entries, Entry{
				Kind:  EntryPair,
				Key:   strings.TrimSpace(key),
				Value: strings.TrimSpace(value),
				Raw:   line,
			})
		}
	}
	return p
}

// Values returns the key/value pairs. A repeated key keeps its last value.
func (p *Properties) Values() map[string]string {
	out := make(map[string]string)
	for _, e := range p.Entries {
		if e.Kind == EntryPair {
			out[e.Key] = e.Value
		}
	}
	return out
}

// Get returns the value for key.
func (p *Properties) Get(key string) (string, bool) {
	v, ok := p.Values()[key]
	return v, ok
}

// Apply rewrites the pairs whose keys appear in values. Keys not already
// present in the file are ignored.
func (p *Properties) Apply(values map[string]string) {
	for i, e := range p.Entries {
		if e.Kind != EntryPair {
			continue
		}
		v, ok := values[e.Key]
		if !ok {
			continue
		}
		p.Entries[i].Value = v
		p.Entries[i].Raw = e.Key + "=" + v
	}
}

// Empty reports whether the file had no content at all.
func (p *Properties) Empty() bool {
	return len(p.Entries) == 0 || len(p.Entries) == 1 && p.Entries[0].Kind == EntryBlank
}

func (p *Properties) String() string {
	lines := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		lines[i] = e.Raw
	}
	return strings.Join(lines, "\n")
}

// ErrPropertiesMissing is returned when server.properties does not exist yet.
var ErrPropertiesMissing = errors.New("serverdir: server.properties not found")

// LoadProperties reads server.properties. A missing file yields an empty set.
func LoadProperties(path string) (*Properties, error) {
	raw, err := ReadText(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Properties{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseProperties(string(raw)), nil
}

// UpdateProperties applies values to an existing server.properties.
func UpdateProperties(path string, values map[string]string) error {
	p, err := LoadProperties(path)
	if err != nil {
		return err
	}
	if len(p.Entries) == 0 {
		return ErrPropertiesMissing
	}
	p.Apply(values)
	return WriteFileAtomic(path, []byte(p.String()))
}
