package permissions

import (
	"errors"
	"sort"
)

var (
	// ErrInvalidTable rejects checks and grants against table names outside
	// the fixed allow-list. It is a client error, never a silent deny.
	ErrInvalidTable = errors.New("invalid table name")
	ErrNotFound     = errors.New("permission not found")
	ErrInvalidScope = errors.New("invalid scope")
)

// Action is one of the four CRUD capabilities.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Scope is the breadth of rows a permission covers.
type Scope string

const (
	ScopeNone Scope = "NONE"
	ScopeOwn  Scope = "OWN"
	ScopeAll  Scope = "ALL"
)

func ValidScope(s Scope) bool {
	return s == ScopeNone || s == ScopeOwn || s == ScopeAll
}

// satisfies reports whether a stored scope meets a required one. ALL demands
// an exact ALL; OWN is met by OWN or ALL; an empty requirement is met by any
// stored scope.
func (s Scope) satisfies(required Scope) bool {
	switch required {
	case ScopeAll:
		return s == ScopeAll
	case ScopeOwn:
		return s == ScopeOwn || s == ScopeAll
	case "":
		return true
	default:
		return false
	}
}

// Permission is the capability entry for one table.
type Permission struct {
	CanCreate bool  `json:"can_create"`
	CanRead   bool  `json:"can_read"`
	CanUpdate bool  `json:"can_update"`
	CanDelete bool  `json:"can_delete"`
	Scope     Scope `json:"scope"`
}

// allows maps an action to its flag with an exhaustive match over the action
// enum.
func (p Permission) allows(a Action) bool {
	switch a {
	case ActionCreate:
		return p.CanCreate
	case ActionRead:
		return p.CanRead
	case ActionUpdate:
		return p.CanUpdate
	case ActionDelete:
		return p.CanDelete
	default:
		return false
	}
}

// Map is a user's full permission map keyed by table name.
type Map map[string]Permission

// Requirement is a permission demand attached to a route or check: a table,
// an action and an optional scope (empty means any scope with the flag set).
type Requirement struct {
	Table  string `json:"table"`
	Action Action `json:"action"`
	Scope  Scope  `json:"scope,omitempty"`
}

// allowedTables is the fixed allow-list of resource tables permission checks
// may name. Extend it when a new entity table is added.
var allowedTables = map[string]struct{}{
	"audit_logs":       {},
	"tenants":          {},
	"user_permissions": {},
	"users":            {},
}

func validTable(name string) bool {
	_, ok := allowedTables[name]
	return ok
}

// AllowedTables returns the allow-list in sorted order.
func AllowedTables() []string {
	out := make([]string, 0, len(allowedTables))
	for name := range allowedTables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
