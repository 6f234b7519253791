package criteria

import (
	"maps"
	"strings"

	"github.com/jakechorley/church-music-scheduler/pkg/core/matcher"
	"github.com/jakechorley/church-music-scheduler/pkg/core/model"
)

// DefaultRoleSkills maps a role name (lower case) to the declared skills that qualify for it
var DefaultRoleSkills = map[string][]string{
	"piano":           {"piano", "keyboard", "keys"},
	"keyboard":        {"keyboard", "keys", "piano", "synth"},
	"organ":           {"organ", "piano", "keyboard"},
	"guitar":          {"guitar", "acoustic guitar", "electric guitar"},
	"acoustic guitar": {"acoustic guitar", "guitar"},
	"electric guitar": {"electric guitar", "guitar"},
	"bass":            {"bass", "bass guitar", "electric bass", "upright bass"},
	"drums":           {"drums", "percussion", "cajon"},
	"percussion":      {"percussion", "drums", "cajon"},
	"vocals":          {"vocals", "voice", "singer", "soprano", "alto", "tenor", "baritone"},
	"worship leader":  {"worship leader", "vocals", "guitar", "piano"},
	"choir":           {"choir", "vocals", "voice", "soprano", "alto", "tenor", "baritone"},
	"violin":          {"violin", "fiddle"},
	"cello":           {"cello"},
	"trumpet":         {"trumpet", "cornet"},
	"saxophone":       {"saxophone", "sax"},
	"flute":           {"flute"},
	"sound":           {"sound", "audio", "mixing", "sound engineer"},
}

// RoleSkills returns DefaultRoleSkills with overrides applied on top. Role
// names are matched case-insensitively.
func RoleSkills(overrides map[string][]string) map[string][]string {
	table := make(map[string][]string, len(DefaultRoleSkills)+len(overrides))
	maps.Copy(table, DefaultRoleSkills)
	for role, skills := range overrides {
		table[normalize(role)] = skills
	}
	return table
}

// QualificationCriterion requires a declared skill accepted for the role.
//
// Validity:
//   - Known roles accept the skills listed in the role skills table
//   - Unknown roles accept any skill that contains, or is contained in, the role name
//   - A candidate who has declared no skills never qualifies
type QualificationCriterion struct {
	roleSkills map[string][]string
}

// NewQualificationCriterion creates a QualificationCriterion over the given role skills table
func NewQualificationCriterion(roleSkills map[string][]string) *QualificationCriterion {
	table := make(map[string][]string, len(roleSkills))
	for role, skills := range roleSkills {
		table[normalize(role)] = skills
	}
	return &QualificationCriterion{roleSkills: table}
}

func (c *QualificationCriterion) Name() string {
	return "Qualification"
}

func (c *QualificationCriterion) Reason() matcher.Reason {
	return matcher.ReasonNoneQualified
}

func (c *QualificationCriterion) IsEligible(slot *matcher.Slot, candidate *model.Candidate) bool {
	role := normalize(slot.Assignment.RoleName)
	if role == "" {
		return false
	}

	accepted, known := c.roleSkills[role]
	for _, instrument := range candidate.Instruments {
		skill := normalize(instrument)
		if skill == "" {
			continue
		}

		if !known {
			if strings.Contains(role, skill) || strings.Contains(skill, role) {
				return true
			}
			continue
		}

		for _, a := range accepted {
			if normalize(a) == skill {
				return true
			}
		}
	}

	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
