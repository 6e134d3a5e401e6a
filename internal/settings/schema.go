package settings

import (
	"github.com/joseph-ayodele/faktur-sorter/constants"
)

// BuildSettingsJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// Unknown keys are allowed so older clients keep working.
func BuildSettingsJSONSchema() map[string]any {
	props := map[string]any{
		"mode": map[string]any{
			"type": "string",
			"enum": []string{string(constants.ModeMerge), string(constants.ModeRename)},
		},
		"componentOrder": map[string]any{
			"type":     "array",
			"maxItems": 16,
			"items":    map[string]any{"type": "string", "minLength": 1, "maxLength": 32},
		},
		"separator":         map[string]any{"type": "string", "maxLength": 16},
		"slashReplacement":  map[string]any{"type": "string", "maxLength": 8},
		"maxFilenameLength": map[string]any{"type": "integer", "minimum": 0, "maximum": 255},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties":           props,
	}
}
