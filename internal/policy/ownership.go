package policy

import "context"

// Ownable is implemented by every tenant scoped model.
type Ownable interface {
	GetPartnerID() uint
}

// OwnershipPolicy allows a partner to act on the resources it owns.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks if the partner owns the resource.
// For list/create actions (resource is nil) it returns true; those queries
// are scoped by partner ID at the store level.
func (p *OwnershipPolicy) Can(_ context.Context, partnerID uint, _ Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// Resources without an owner are never reachable through a tenant path.
		return false
	}
	return ownable.GetPartnerID() == partnerID
}
