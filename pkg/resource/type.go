package resource

import (
	"strings"

	"github.com/matzehuels/psfind/pkg/errors"
)

// Type classifies a gallery resource. The empty Type means "any".
type Type string

const (
	Module         Type = "Module"
	Script         Type = "Script"
	Command        Type = "Command"
	DscResource    Type = "DscResource"
	RoleCapability Type = "RoleCapability"
	Function       Type = "Function"
	Workflow       Type = "Workflow"
	Cmdlet         Type = "Cmdlet"
)

// Types lists every known resource type.
func Types() []Type {
	return []Type{Module, Script, Command, DscResource, RoleCapability, Function, Workflow, Cmdlet}
}

// Tag returns the gallery tag marking resources of this type, e.g. "PSModule".
func (t Type) Tag() string {
	if t == "" {
		return ""
	}
	return "PS" + string(t)
}

// IncludePrefix returns the tag prefix used to list contained items of this
// type, e.g. "PSCommand_" for commands. Module and Script have none.
func (t Type) IncludePrefix() string {
	switch t {
	case Command, DscResource, RoleCapability, Function, Workflow, Cmdlet:
		return t.Tag() + "_"
	}
	return ""
}

// ParseType parses a type name case-insensitively. Both "Module" and
// "PSModule" are accepted.
func ParseType(s string) (Type, error) {
	name := strings.TrimSpace(s)
	for _, t := range Types() {
		if strings.EqualFold(name, string(t)) || strings.EqualFold(name, t.Tag()) {
			return t, nil
		}
	}
	return "", errors.New(errors.ErrCodeValidation, "unknown resource type %q", s)
}
