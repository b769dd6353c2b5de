package access

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const capabilityModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// Authorizer maps roles to capabilities. Roles inherit upward: admin includes
// everything a policy manager holds, which includes everything a user holds.
type Authorizer struct {
	enforcer *casbin.Enforcer
	table    map[Role]map[Capability]bool
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := model.NewModelFromString(capabilityModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse capability model: %w", err)
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	policies := [][]string{
		{string(RoleUser), string(CapRead)},
		{string(RolePolicyManager), string(CapReadHidden)},
		{string(RolePolicyManager), string(CapWrite)},
		{string(RoleAdmin), string(CapAdmin)},
	}
	if _, err := e.AddPolicies(policies); err != nil {
		return nil, fmt.Errorf("failed to load capability policies: %w", err)
	}

	inheritance := [][]string{
		{string(RolePolicyManager), string(RoleUser)},
		{string(RoleAdmin), string(RolePolicyManager)},
	}
	if _, err := e.AddGroupingPolicies(inheritance); err != nil {
		return nil, fmt.Errorf("failed to load role inheritance: %w", err)
	}

	a := &Authorizer{enforcer: e, table: make(map[Role]map[Capability]bool, len(Roles))}
	for _, role := range Roles {
		caps := make(map[Capability]bool, len(Capabilities))
		for _, cap := range Capabilities {
			ok, err := e.Enforce(string(role), string(cap))
			if err != nil {
				return nil, fmt.Errorf("failed to evaluate %s/%s: %w", role, cap, err)
			}
			caps[cap] = ok
		}
		a.table[role] = caps
	}

	return a, nil
}

// Can reports whether role holds cap. Unknown roles hold nothing.
func (a *Authorizer) Can(role Role, cap Capability) bool {
	return a.table[role][cap]
}

func (a *Authorizer) CapabilitiesOf(role Role) []Capability {
	var out []Capability
	for _, cap := range Capabilities {
		if a.table[role][cap] {
			out = append(out, cap)
		}
	}
	return out
}

// NewCaller resolves the capability set of role once for the lifetime of a request.
func (a *Authorizer) NewCaller(userID, username string, role Role, groupIDs []string) Caller {
	caps := make(map[Capability]bool, len(Capabilities))
	for cap, ok := range a.table[role] {
		caps[cap] = ok
	}
	return Caller{
		UserID:   userID,
		Username: username,
		Role:     role,
		GroupIDs: groupIDs,
		caps:     caps,
	}
}
