package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/faktur-sorter/constants"
	"github.com/joseph-ayodele/faktur-sorter/internal/common"
	"github.com/joseph-ayodele/faktur-sorter/internal/entity"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(BuildSettingsJSONSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("settings.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile("settings.json")
	})
	return schema, schemaErr
}

// partial mirrors Settings with pointers so absent keys are distinguishable.
type partial struct {
	Mode              *string  `json:"mode"`
	ComponentOrder    []string `json:"componentOrder"`
	Separator         *string  `json:"separator"`
	SlashReplacement  *string  `json:"slashReplacement"`
	MaxFilenameLength *int     `json:"maxFilenameLength"`
}

// Parse validates raw caller settings and merges them over the defaults.
// Empty input yields the defaults.
func Parse(raw []byte) (entity.Settings, error) {
	out := entity.DefaultSettings()
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}

	sch, err := compiled()
	if err != nil {
		return out, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return out, common.NewAppError(common.CodeInvalidInput, "settings are not valid JSON", common.ErrInvalidInput)
	}
	if err := sch.Validate(doc); err != nil {
		return out, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("settings do not match schema: %v", err), common.ErrInvalidInput)
	}

	var p partial
	if err := json.Unmarshal(raw, &p); err != nil {
		return out, common.NewAppError(common.CodeInvalidInput, "decode settings", common.ErrInvalidInput)
	}
	return merge(out, p), nil
}

// merge applies the present keys of p over base. Empty separator and slash
// replacement keep the base value, as the upload form always did.
func merge(base entity.Settings, p partial) entity.Settings {
	if p.Mode != nil {
		if m, err := constants.ParseMode(*p.Mode); err == nil {
			base.Mode = m
		}
	}
	if p.ComponentOrder != nil {
		order := make([]constants.Component, 0, len(p.ComponentOrder))
		for _, c := range p.ComponentOrder {
			order = append(order, constants.Component(c))
		}
		base.ComponentOrder = order
	}
	if p.Separator != nil && *p.Separator != "" {
		base.Separator = *p.Separator
	}
	if p.SlashReplacement != nil && *p.SlashReplacement != "" {
		base.SlashReplacement = *p.SlashReplacement
	}
	if p.MaxFilenameLength != nil {
		base.MaxFilenameLength = *p.MaxFilenameLength
	}
	return base
}

// ForMode returns the defaults with only the mode replaced.
func ForMode(mode constants.Mode) entity.Settings {
	s := entity.DefaultSettings()
	s.Mode = mode
	return s
}
