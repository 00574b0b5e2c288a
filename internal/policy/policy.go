// Package policy decides whether an actor may perform an action on a project or task.
//
// Decisions are pure: the caller computes the actor's role once per request and the
// actor's relation to the target object, and Can looks the pair up in a static table.
package policy

import "github.com/google/uuid"

// Role is the actor's global privilege level derived from the identity flags.
type Role int

const (
	// RoleMember has neither the staff nor the superuser flag.
	RoleMember Role = iota + 1
	// RoleManager has the staff flag only.
	RoleManager
	// RoleAdmin has the superuser flag only.
	RoleAdmin
	// RoleSuperadmin has both flags and bypasses membership checks.
	RoleSuperadmin
)

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleManager:
		return "manager"
	case RoleAdmin:
		return "admin"
	case RoleSuperadmin:
		return "superadmin"
	}
	return "unknown"
}

// Actor is the authenticated user a request acts on behalf of.
type Actor struct {
	ID          uuid.UUID
	IsStaff     bool
	IsSuperuser bool
}

// Role maps the identity flags to a Role.
func (a Actor) Role() Role {
	switch {
	case a.IsStaff && a.IsSuperuser:
		return RoleSuperadmin
	case a.IsSuperuser:
		return RoleAdmin
	case a.IsStaff:
		return RoleManager
	}
	return RoleMember
}

// CanCreate reports whether the actor may create projects and tasks.
func (a Actor) CanCreate() bool {
	r := a.Role()
	return r == RoleManager || r == RoleAdmin || r == RoleSuperadmin
}

// SeesEverything reports whether visibility scoping is lifted for the actor.
func (a Actor) SeesEverything() bool {
	return a.Role() == RoleSuperadmin
}

// Resource is the kind of object being acted on.
type Resource int

const (
	ResourceProject Resource = iota + 1
	ResourceTask
)

// Action is the operation requested on a resource.
type Action int

const (
	// ActionCreate and ActionList are checked without a target object.
	ActionCreate Action = iota + 1
	ActionList
	// ActionRetrieve, ActionUpdate and ActionDestroy are checked against a target object.
	ActionRetrieve
	ActionUpdate
	ActionDestroy
)

// Relation is a bit set describing how the actor relates to the target object.
type Relation uint8

const (
	// Authenticated is always present; a rule requiring it grants unconditionally.
	Authenticated Relation = 1 << iota
	// Creator: the actor created the object.
	Creator
	// Assignee: the task is assigned to the actor.
	Assignee
	// Member: the actor holds any membership row on the project.
	Member
	// Steward: the actor holds an owner, admin or manager membership row.
	Steward
)

// rule maps each role to the relation bits that grant it; missing roles are denied.
type rule map[Role]Relation

var (
	creators = rule{
		RoleManager:    Authenticated,
		RoleAdmin:      Authenticated,
		RoleSuperadmin: Authenticated,
	}
	everyone = rule{
		RoleMember:     Authenticated,
		RoleManager:    Authenticated,
		RoleAdmin:      Authenticated,
		RoleSuperadmin: Authenticated,
	}
	members = rule{
		RoleMember:     Member,
		RoleManager:    Member,
		RoleAdmin:      Member,
		RoleSuperadmin: Authenticated,
	}
)

var table = map[Resource]map[Action]rule{
	ResourceProject: {
		ActionCreate:   creators,
		ActionList:     everyone,
		ActionRetrieve: members,
		ActionUpdate:   members,
		ActionDestroy: {
			RoleManager:    Steward,
			RoleAdmin:      Authenticated,
			RoleSuperadmin: Authenticated,
		},
	},
	ResourceTask: {
		ActionCreate:   creators,
		ActionList:     everyone,
		ActionRetrieve: members,
		ActionUpdate: {
			RoleMember:     Creator | Assignee | Steward,
			RoleManager:    Authenticated,
			RoleAdmin:      Authenticated,
			RoleSuperadmin: Authenticated,
		},
		ActionDestroy: creators,
	},
}

// Can reports whether an actor with role and relation may perform action on resource.
// Unknown resources and actions are denied.
func Can(role Role, resource Resource, action Action, rel Relation) bool {
	grants, ok := table[resource][action][role]
	if !ok {
		return false
	}
	return (rel|Authenticated)&grants != 0
}
