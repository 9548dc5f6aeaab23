// Package agents provides the bureau agent data model shared by scenarios,
// the relationship store, and the move impact engine.
package agents

import "fmt"

// ID is a unique identifier for an agent within a scenario (e.g. "exp-cro").
type ID string

// Type is the organization an agent belongs to.
type Type string

const (
	TypeExperian   Type = "Experian"
	TypeEquifax    Type = "Equifax"
	TypeTransUnion Type = "TransUnion"
)

// Types lists every organization in display order.
var Types = []Type{TypeExperian, TypeEquifax, TypeTransUnion}

// Valid reports whether t is one of the known organizations.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Role is an agent's position inside its organization.
type Role string

const (
	RoleCRO         Role = "CRO"
	RoleRiskOfficer Role = "Risk Officer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCRO || r == RoleRiskOfficer
}

// Position is the agent's 2-D display position in percent of the map area.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Agent is a decision maker in a scenario. Immutable after scenario load.
type Agent struct {
	ID   ID     `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`
	Role Role   `json:"role" yaml:"role"`

	// Goals
	ShortTermGoal string `json:"short_term_goal" yaml:"short_term_goal"`
	LongTermGoal  string `json:"long_term_goal" yaml:"long_term_goal"`

	Position Position `json:"position" yaml:"position"`
}

// Label returns "Name (Type)" for list output.
func (a Agent) Label() string {
	return fmt.Sprintf("%s (%s)", a.Name, a.Type)
}

// Validate checks that the agent has an id and known categorical fields.
func (a Agent) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("agent %q: missing id", a.Name)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("agent %s: unknown type %q", a.ID, a.Type)
	}
	if !a.Role.Valid() {
		return fmt.Errorf("agent %s: unknown role %q", a.ID, a.Role)
	}
	return nil
}

// Index builds an ID → Agent lookup.
func Index(list []Agent) map[ID]Agent {
	idx := make(map[ID]Agent, len(list))
	for _, a := range list {
		idx[a.ID] = a
	}
	return idx
}
