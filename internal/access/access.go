// Package access resolves what a caller may see. Visibility rules live here as
// pure functions so the list, get and download paths on both the public and the
// authenticated surface share one predicate.
package access

import (
	"context"
	"slices"
)

type Role string

const (
	RoleAdmin         Role = "admin"
	RolePolicyManager Role = "policy_manager"
	RoleUser          Role = "user"
)

var Roles = []Role{RoleAdmin, RolePolicyManager, RoleUser}

func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

type Capability string

const (
	CapRead       Capability = "read"
	CapReadHidden Capability = "read-hidden"
	CapWrite      Capability = "write"
	CapAdmin      Capability = "admin"
)

var Capabilities = []Capability{CapRead, CapReadHidden, CapWrite, CapAdmin}

// Document statuses the resolver reasons about.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
	StatusHidden   = "hidden"
	StatusDeleted  = "deleted"
)

// ListedStatuses are the statuses a non-privileged reader can ever see.
var ListedStatuses = []string{StatusActive, StatusArchived}

// Caller is the resolved identity of a request. The zero value is the anonymous caller.
type Caller struct {
	UserID   string
	Username string
	Role     Role
	GroupIDs []string
	caps     map[Capability]bool
}

func (c Caller) Anonymous() bool {
	return c.UserID == ""
}

func (c Caller) Has(cap Capability) bool {
	return c.caps[cap]
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFromContext returns the caller stored by the auth middleware, or the anonymous caller.
func CallerFromContext(ctx context.Context) Caller {
	if ctx == nil {
		return Caller{}
	}
	if c, ok := ctx.Value(callerKey{}).(Caller); ok {
		return c
	}
	return Caller{}
}

type Visibility int

const (
	// VisibilityAll applies no visibility clause.
	VisibilityAll Visibility = iota
	// VisibilityListed admits visible records plus any record in a listed status.
	VisibilityListed
	// VisibilityPublic admits only records flagged visible to users.
	VisibilityPublic
	// VisibilityPublicOrGroups admits visible records and records granted to one of GroupIDs.
	VisibilityPublicOrGroups
)

// Scope is the storage-neutral form of the visibility predicate for one caller.
type Scope struct {
	Statuses        []string
	ExcludeStatuses []string
	Visibility      Visibility
	GroupIDs        []string
}

type ScopeOptions struct {
	IncludeHidden  bool
	IncludeDeleted bool
}

// Subject is the part of a document the predicate looks at.
type Subject struct {
	Status           string
	IsVisibleToUsers bool
	GroupIDs         []string
}

// ResolveScope maps a caller to the filter applied to every document read.
// The flags only widen the scope for callers holding read-hidden.
func ResolveScope(c Caller, opts ScopeOptions) Scope {
	switch {
	case c.Anonymous():
		return Scope{Statuses: ListedStatuses, Visibility: VisibilityPublic}
	case c.Has(CapReadHidden):
		s := Scope{Visibility: VisibilityListed}
		if opts.IncludeHidden {
			s.Visibility = VisibilityAll
		}
		if !opts.IncludeDeleted {
			s.ExcludeStatuses = []string{StatusDeleted}
		}
		return s
	default:
		return Scope{
			Statuses:   ListedStatuses,
			Visibility: VisibilityPublicOrGroups,
			GroupIDs:   c.GroupIDs,
		}
	}
}

// PublicScope is the scope of the unauthenticated surface regardless of any token sent.
func PublicScope() Scope {
	return ResolveScope(Caller{}, ScopeOptions{})
}

// Allows evaluates the scope against a single record, mirroring the storage filter.
func (s Scope) Allows(sub Subject) bool {
	if len(s.Statuses) > 0 && !slices.Contains(s.Statuses, sub.Status) {
		return false
	}
	if slices.Contains(s.ExcludeStatuses, sub.Status) {
		return false
	}
	switch s.Visibility {
	case VisibilityListed:
		return sub.IsVisibleToUsers || slices.Contains(ListedStatuses, sub.Status)
	case VisibilityPublic:
		return sub.IsVisibleToUsers
	case VisibilityPublicOrGroups:
		return sub.IsVisibleToUsers || intersects(s.GroupIDs, sub.GroupIDs)
	default:
		return true
	}
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if slices.Contains(b, x) {
			return true
		}
	}
	return false
}
