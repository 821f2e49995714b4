package panel

import (
	"encoding/json"
	"errors"

	"github.com/tinytelemetry/craftpanel/internal/serverdir"
	"github.com/tinytelemetry/craftpanel/internal/settings"
)

// ConfigView is the app config together with the current server.properties.
type ConfigView struct {
	App        settings.AppConfig `json:"app"`
	Properties map[string]string  `json:"properties"`
}

// ConfigUpdate is a partial config change. A nil Properties leaves
// server.properties untouched.
type ConfigUpdate struct {
	App        *settings.Patch   `json:"app,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// Config returns the app config and the server properties.
func (s *Service) Config() (ConfigView, error) {
	cfg, paths, err := s.config()
	if err != nil {
		return ConfigView{}, err
	}
	props, err := serverdir.LoadProperties(paths.Properties)
	if err != nil {
		return ConfigView{}, err
	}
	return ConfigView{App: cfg, Properties: props.Values()}, nil
}

// UpdateConfig applies the app patch first so a changed server directory is
// used for the properties write.
func (s *Service) UpdateConfig(u ConfigUpdate) error {
	if u.App != nil {
		if _, err := s.opts.Settings.Update(*u.App); err != nil {
			return err
		}
	}
	if u.Properties == nil {
		return nil
	}
	_, paths, err := s.config()
	if err != nil {
		return err
	}
	return serverdir.UpdateProperties(paths.Properties, u.Properties)
}

// Lists returns every access list.
func (s *Service) Lists() (map[serverdir.ListKind][]json.RawMessage, error) {
	_, paths, err := s.config()
	if err != nil {
		return nil, err
	}
	out := make(map[serverdir.ListKind][]json.RawMessage, len(serverdir.ListKinds))
	for _, kind := range serverdir.ListKinds {
		path, _ := paths.ListPath(kind)
		items, err := serverdir.ReadJSONArray(path)
		if err != nil {
			return nil, err
		}
		out[kind] = items
	}
	return out, nil
}

// SetLists replaces the given lists. Every payload is validated before any
// file is written.
func (s *Service) SetLists(lists map[serverdir.ListKind]json.RawMessage) error {
	_, paths, err := s.config()
	if err != nil {
		return err
	}
	for kind, raw := range lists {
		if _, err := paths.ListPath(kind); err != nil {
			return errors.Join(ErrInvalidRequest, err)
		}
		var probe []json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil || probe == nil {
			return serverdir.ErrNotArray
		}
	}
	for _, kind := range serverdir.ListKinds {
		raw, ok := lists[kind]
		if !ok {
			continue
		}
		path, _ := paths.ListPath(kind)
		if err := serverdir.WriteJSONArray(path, raw); err != nil {
			return err
		}
	}
	return nil
}
