// Package session carries the active tenant through a request as an explicit
// context value instead of process-wide state.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// TenantID names the user whose record set is active.
type TenantID string

// DefaultTenant selects the shared record set used when no tenant is active.
const DefaultTenant TenantID = ""

type contextKey struct{}

var (
	ErrInvalidTenant = errors.New("invalid tenant id")

	tenantPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// Validate checks that the id is safe to use as a file or row key.
func (t TenantID) Validate() error {
	if t == DefaultTenant {
		return nil
	}
	if !tenantPattern.MatchString(string(t)) {
		return fmt.Errorf("%w: %q", ErrInvalidTenant, string(t))
	}
	return nil
}

func (t TenantID) String() string {
	if t == DefaultTenant {
		return "default"
	}
	return string(t)
}

// WithTenant returns a context scoped to the given tenant.
func WithTenant(ctx context.Context, id TenantID) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Tenant returns the tenant stored in ctx, if any.
func Tenant(ctx context.Context) (TenantID, bool) {
	id, ok := ctx.Value(contextKey{}).(TenantID)
	if !ok || id == DefaultTenant {
		return DefaultTenant, false
	}
	return id, true
}

// TenantOrDefault returns the active tenant or DefaultTenant.
func TenantOrDefault(ctx context.Context) TenantID {
	id, _ := Tenant(ctx)
	return id
}
