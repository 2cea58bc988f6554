package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"recurse.com/niceties/internal/store"
)

const (
	// SettingIncludeResidents gates whether residents qualify for the
	// staying/leaving partition.
	SettingIncludeResidents = "include_residents"
	// SettingIncludeFaculty gates whether faculty qualify.
	SettingIncludeFaculty = "include_faculty"
)

var ErrUnknownSetting = errors.New("unknown setting key")
var ErrBadSettingValue = errors.New("bad setting value")

// settingKinds maps each known key to the type its value must decode
// to.
var settingKinds = map[string]string{
	SettingIncludeResidents: "bool",
	SettingIncludeFaculty:   "bool",
}

// SettingsService is the typed view over the site_settings table.
type SettingsService struct {
	dbStore *store.SQLiteStore
}

func NewSettingsService(db *store.SQLiteStore) *SettingsService {
	return &SettingsService{dbStore: db}
}

// All returns every known setting as its frontend value, with known
// keys that have never been set reported at their zero value.
func (s *SettingsService) All() (map[string]any, error) {
	values := map[string]any{}
	for key, kind := range settingKinds {
		switch kind {
		case "bool":
			values[key] = false
		}
	}

	settings, err := s.dbStore.AllSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	for _, setting := range settings {
		var value any
		if err := json.Unmarshal([]byte(setting.Value), &value); err != nil {
			return nil, fmt.Errorf("failed to decode setting %s: %w", setting.Key, err)
		}
		values[setting.Key] = value
	}
	return values, nil
}

// Set validates rawValue (a JSON literal) against the key's declared
// type and stores it.
func (s *SettingsService) Set(key, rawValue string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return ErrUnknownSetting
	}

	switch kind {
	case "bool":
		var value bool
		if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
			return ErrBadSettingValue
		}
	}

	if err := s.dbStore.SetSetting(key, rawValue); err != nil {
		return err
	}
	return nil
}

// Bool reads a boolean setting, returning fallback when the key was
// never set or cannot be decoded.
func (s *SettingsService) Bool(key string, fallback bool) bool {
	setting, err := s.dbStore.GetSetting(key)
	if err != nil {
		log.Printf("Failed to read setting %s: %v", key, err)
		return fallback
	}
	if setting == nil {
		return fallback
	}

	var value bool
	if err := json.Unmarshal([]byte(setting.Value), &value); err != nil {
		log.Printf("Setting %s has a non-boolean value %q", key, setting.Value)
		return fallback
	}
	return value
}
