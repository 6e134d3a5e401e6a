package constants

import (
	"fmt"
	"strings"
)

// Mode selects how a job reorganizes its documents.
type Mode string

const (
	// ModeMerge concatenates documents sharing (tax id, partner) into one file.
	ModeMerge Mode = "merge"
	// ModeRename copies every document under a name rendered from the settings template.
	ModeRename Mode = "rename"
)

// ParseMode maps user input onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeMerge:
		return ModeMerge, nil
	case ModeRename:
		return ModeRename, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Label is the human readable mode name used in progress logs.
func (m Mode) Label() string {
	if m == ModeRename {
		return "Rename Only"
	}
	return "Rename + Merge"
}
