package types

import "strings"

// Role NPC 角色标签
type Role string

const (
	RoleWarrior  Role = "warrior"
	RoleHunter   Role = "hunter"
	RoleGatherer Role = "gatherer"
	RoleForager  Role = "forager"
	RoleBuilder  Role = "builder"
	RoleScout    Role = "scout"
	RoleTrader   Role = "trader"
)

// Fights reports whether the role engages hostiles instead of fleeing.
func (r Role) Fights() bool {
	switch normalizeRole(r) {
	case RoleWarrior, RoleHunter:
		return true
	}
	return false
}

// Gathers reports whether the role prefers harvestables over hunting.
func (r Role) Gathers() bool {
	switch normalizeRole(r) {
	case RoleGatherer, RoleForager, RoleBuilder:
		return true
	}
	return false
}

func normalizeRole(r Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(r))))
}

// Character 是 NPC 的静态人设，启动时从 roster 加载，之后只读。
type Character struct {
	Name        string   `json:"name" yaml:"name"`
	Role        Role     `json:"role" yaml:"role"`
	Personality string   `json:"personality" yaml:"personality"`
	Priorities  []string `json:"priorities,omitempty" yaml:"priorities"`
	Preferred   []string `json:"preferred_resources,omitempty" yaml:"preferred_resources"`
}

// Prefers reports whether plantType is in the preferred resource list.
// An empty list prefers everything.
func (c Character) Prefers(plantType string) bool {
	if len(c.Preferred) == 0 {
		return true
	}
	for _, p := range c.Preferred {
		if strings.EqualFold(p, plantType) {
			return true
		}
	}
	return false
}

// HasPriority reports whether the character lists the given priority.
func (c Character) HasPriority(p string) bool {
	for _, v := range c.Priorities {
		if strings.EqualFold(v, p) {
			return true
		}
	}
	return false
}
