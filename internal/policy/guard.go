// Package policy decides whether an acting partner may touch a tenant resource.
//
// Every denial surfaces as errs.ErrNotFound, so a partner asking for another
// tenant's IDs cannot tell "absent" from "not yours".
package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/diewo77/go-partners/internal/errs"
)

// Action describes the kind of operation a partner wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

// Resource type names used when registering policies.
const (
	ResourceClient   = "client"
	ResourceService  = "service"
	ResourceProposal = "proposal"
)

var ErrNoPolicyDefined = errors.New("no policy defined for resource")

// Policy decides one resource type. For list and create, resource is nil.
type Policy interface {
	Can(ctx context.Context, partnerID uint, action Action, resource any) bool
}

// TenantGuard scopes reads and writes to the acting partner.
type TenantGuard struct {
	policies map[string]Policy
}

// NewTenantGuard registers the ownership policy for every tenant resource.
func NewTenantGuard() *TenantGuard {
	g := &TenantGuard{policies: make(map[string]Policy)}
	ownership := NewOwnershipPolicy()
	for _, rt := range []string{ResourceClient, ResourceService, ResourceProposal} {
		g.Register(rt, ownership)
	}
	return g
}

// Register adds or replaces the policy for resourceType.
func (g *TenantGuard) Register(resourceType string, p Policy) {
	g.policies[resourceType] = p
}

// Check returns an error wrapping errs.ErrNotFound when partnerID may not
// perform action on resource. Partner ID zero is nobody and never passes.
func (g *TenantGuard) Check(ctx context.Context, partnerID uint, action Action, resourceType string, resource any) error {
	p, ok := g.policies[resourceType]
	if !ok {
		return fmt.Errorf("tenant guard %q: %w", resourceType, ErrNoPolicyDefined)
	}
	if partnerID == 0 || !p.Can(ctx, partnerID, action, resource) {
		return fmt.Errorf("%s: %w", resourceType, errs.ErrNotFound)
	}
	return nil
}

// Load fetches a resource by primary key and checks it belongs to partnerID.
// A missing row and a foreign row produce the same error. Run it inside the
// transaction that performs the write so the check and the mutation see the
// same row.
func Load[T Ownable](ctx context.Context, g *TenantGuard, partnerID uint, action Action, resourceType string, find func() (T, error)) (T, error) {
	res, err := find()
	if err != nil {
		var zero T
		return zero, err
	}
	if err := g.Check(ctx, partnerID, action, resourceType, res); err != nil {
		var zero T
		return zero, err
	}
	return res, nil
}
