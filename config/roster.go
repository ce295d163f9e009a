package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/npcagent/types"
)

// knownRoles 名册允许的角色
var knownRoles = map[types.Role]bool{
	types.RoleWarrior:  true,
	types.RoleHunter:   true,
	types.RoleGatherer: true,
	types.RoleForager:  true,
	types.RoleBuilder:  true,
	types.RoleScout:    true,
	types.RoleTrader:   true,
}

// LoadRoster 读取 NPC 名册（YAML 角色列表）
func LoadRoster(path string) ([]types.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster 解析并校验名册内容。名称不区分大小写唯一，角色统一为小写。
func ParseRoster(data []byte) ([]types.Character, error) {
	var chars []types.Character
	if err := yaml.Unmarshal(data, &chars); err != nil {
		return nil, fmt.Errorf("failed to parse roster: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("roster is empty")
	}

	var errs []string
	seen := make(map[string]int, len(chars))
	for i := range chars {
		c := &chars[i]
		c.Name = strings.TrimSpace(c.Name)
		c.Role = types.Role(strings.ToLower(strings.TrimSpace(string(c.Role))))

		if c.Name == "" {
			errs = append(errs, fmt.Sprintf("entry %d: name is required", i))
			continue
		}
		key := strings.ToLower(c.Name)
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf("entry %d: name %q duplicates entry %d", i, c.Name, prev))
		}
		seen[key] = i
		if !knownRoles[c.Role] {
			errs = append(errs, fmt.Sprintf("entry %d (%s): unknown role %q", i, c.Name, c.Role))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("roster validation errors: %s", strings.Join(errs, "; "))
	}
	return chars, nil
}

// SelectAgents 按 agent_count 取名册前 N 个角色；超过名册大小时报错
func (c FleetConfig) SelectAgents(roster []types.Character) ([]types.Character, error) {
	switch {
	case c.AgentCount < 0:
		return nil, fmt.Errorf("fleet.agent_count must not be negative")
	case c.AgentCount == 0:
		return roster, nil
	case c.AgentCount > len(roster):
		return nil, fmt.Errorf("fleet.agent_count %d exceeds roster size %d", c.AgentCount, len(roster))
	}
	return roster[:c.AgentCount], nil
}
