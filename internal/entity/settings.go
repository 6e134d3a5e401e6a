package entity

import (
	"github.com/joseph-ayodele/faktur-sorter/constants"
)

const (
	DefaultSeparator        = " - "
	DefaultSlashReplacement = "_"
)

// Settings are the per-job options supplied by the caller, merged over defaults.
type Settings struct {
	Mode              constants.Mode        `json:"mode"`
	ComponentOrder    []constants.Component `json:"componentOrder"`
	Separator         string                `json:"separator"`
	SlashReplacement  string                `json:"slashReplacement"`
	MaxFilenameLength int                   `json:"maxFilenameLength,omitempty"`
}

// DefaultSettings mirrors the defaults the upload form has always sent.
func DefaultSettings() Settings {
	return Settings{
		Mode:             constants.ModeMerge,
		ComponentOrder:   constants.DefaultComponentOrder(),
		Separator:        DefaultSeparator,
		SlashReplacement: DefaultSlashReplacement,
	}
}

// EnabledComponents returns ComponentOrder with duplicates collapsed to their
// first occurrence and unknown names dropped.
func (s Settings) EnabledComponents() []constants.Component {
	seen := make(map[constants.Component]struct{}, len(s.ComponentOrder))
	out := make([]constants.Component, 0, len(s.ComponentOrder))
	for _, c := range s.ComponentOrder {
		canon, ok := constants.Canonicalize(string(c))
		if !ok {
			continue
		}
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		out = append(out, canon)
	}
	return out
}
