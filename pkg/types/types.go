package types

import "strings"

// Stage is a deployment lifecycle label attached to a model version.
type Stage string

const (
	StageNone       Stage = "None"
	StageStaging    Stage = "Staging"
	StageProduction Stage = "Production"
	StageArchived   Stage = "Archived"
)

// Stages lists the stage labels recognized by the registry.
var Stages = []Stage{StageNone, StageStaging, StageProduction, StageArchived}

// ParseStage matches s case-insensitively against the recognized stages and
// returns the canonical spelling.
func ParseStage(s string) (Stage, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Stages {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

func (s Stage) String() string { return string(s) }
