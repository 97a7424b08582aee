package registry

import (
	"os"

	"github.com/qdrant/rivet-plugin-qdrant/internal/node"
	"github.com/qdrant/rivet-plugin-qdrant/internal/transport/qdrant"
)

// Setting keys understood by the plugin.
const (
	SettingAPIKey = "qdrantApiKey"
	SettingURL    = "qdrantUrl"
)

// SettingType is the editor widget used for a setting.
type SettingType string

const (
	SettingSecret SettingType = "secret"
	SettingString SettingType = "string"
)

// Setting describes one entry of the plugin configuration.
type Setting struct {
	Key                 string      `json:"key"`
	Type                SettingType `json:"type"`
	Label               string      `json:"label"`
	Description         string      `json:"description"`
	PullFromEnvironment string      `json:"pullsFromEnvironment,omitempty"`
	Default             string      `json:"default,omitempty"`
}

// Descriptor identifies the plugin to the host.
type Descriptor struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Settings []Setting `json:"configSpec"`
}

// Plugin is the descriptor of the Qdrant plugin.
var Plugin = Descriptor{
	ID:   "qdrant",
	Name: "Qdrant",
	Settings: []Setting{
		{
			Key:                 SettingAPIKey,
			Type:                SettingSecret,
			Label:               "Qdrant API Key",
			Description:         "The API key for the Qdrant service.",
			PullFromEnvironment: "QDRANT_API_KEY",
		},
		{
			Key:                 SettingURL,
			Type:                SettingString,
			Label:               "Qdrant URL",
			Description:         "The URL of the Qdrant service.",
			PullFromEnvironment: "QDRANT_URL",
			Default:             qdrant.DefaultURL,
		},
	},
}

// Connection resolves the Qdrant connection for one invocation. Explicit
// settings win, then the setting's environment variable, then the default.
func (d Descriptor) Connection(settings map[string]string) node.Connection {
	return node.Connection{
		URL:    d.value(SettingURL, settings),
		APIKey: d.value(SettingAPIKey, settings),
	}
}

func (d Descriptor) value(key string, settings map[string]string) string {
	if v := settings[key]; v != "" {
		return v
	}
	for _, s := range d.Settings {
		if s.Key != key {
			continue
		}
		if s.PullFromEnvironment != "" {
			if v := os.Getenv(s.PullFromEnvironment); v != "" {
				return v
			}
		}
		return s.Default
	}
	return ""
}
