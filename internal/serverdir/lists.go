package serverdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotArray is returned when a list payload is not a JSON array.
var ErrNotArray = errors.New("serverdir: list must be a JSON array")

// ListKind names one of the server's JSON access lists.
type ListKind string

const (
	ListWhitelist     ListKind = "whitelist"
	ListBannedPlayers ListKind = "bannedPlayers"
	ListBannedIPs     ListKind = "bannedIps"
	ListOps           ListKind = "ops"
)

// ListKinds is every access list in display order.
var ListKinds = []ListKind{ListWhitelist, ListBannedPlayers, ListBannedIPs, ListOps}

// ListPath maps a list kind to its file.
func (p Paths) ListPath(kind ListKind) (string, error) {
	switch kind {
	case ListWhitelist:
		return p.Whitelist, nil
	case ListBannedPlayers:
		return p.BannedPlayers, nil
	case ListBannedIPs:
		return p.BannedIPs, nil
	case ListOps:
		return p.Ops, nil
	}
	return "", fmt.Errorf("serverdir: unknown list %q", kind)
}

// ReadJSONArray returns the entries of a JSON array file. Missing,
// unparsable and non-array files all read as empty.
func ReadJSONArray(path string) ([]json.RawMessage, error) {
	raw, err := ReadText(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []json.RawMessage{}, nil
	}
	return items, nil
}

// WriteJSONArray validates raw as a JSON array and writes it indented.
func WriteJSONArray(path string, raw json.RawMessage) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return ErrNotArray
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, out)
}
