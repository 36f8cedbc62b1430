package policy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/policy"
)

// mockOwnable is a test resource that implements Ownable.
type mockOwnable struct {
	partnerID uint
}

func (m *mockOwnable) GetPartnerID() uint {
	return m.partnerID
}

// mockNonOwnable is a test resource that does NOT implement Ownable.
type mockNonOwnable struct {
	ID uint
}

type allowAll struct{ allow bool }

func (p allowAll) Can(_ context.Context, _ uint, _ policy.Action, _ any) bool { return p.allow }

func TestTenantGuard_RegisteredPolicy(t *testing.T) {
	ctx := context.Background()
	g := policy.NewTenantGuard()
	g.Register("open", allowAll{allow: true})
	g.Register("closed", allowAll{allow: false})

	if err := g.Check(ctx, 0, policy.ActionView, "open", nil); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("zero partner: expected ErrNotFound, got %v", err)
	}
	if err := g.Check(ctx, 1, policy.ActionView, "open", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := g.Check(ctx, 1, policy.ActionDelete, "closed", nil); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("closed policy: expected ErrNotFound, got %v", err)
	}
	g.Register("closed", allowAll{allow: true})
	if err := g.Check(ctx, 1, policy.ActionDelete, "closed", nil); err != nil {
		t.Errorf("replaced policy should allow, got %v", err)
	}
}

func TestOwnershipPolicy_NilResource(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()

	if !p.Can(ctx, 1, policy.ActionList, nil) {
		t.Error("Expected Can to return true for nil resource")
	}
	if !p.Can(ctx, 1, policy.ActionCreate, nil) {
		t.Error("Expected Can to return true for nil resource on create")
	}
}

func TestOwnershipPolicy_OwnerAndStranger(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	ctx := context.Background()
	resource := &mockOwnable{partnerID: 42}

	for _, a := range []policy.Action{policy.ActionView, policy.ActionUpdate, policy.ActionDelete} {
		if !p.Can(ctx, 42, a, resource) {
			t.Errorf("owner denied for %s", a)
		}
		if p.Can(ctx, 99, a, resource) {
			t.Errorf("non-owner allowed for %s", a)
		}
	}
}

func TestOwnershipPolicy_NonOwnableDenied(t *testing.T) {
	p := policy.NewOwnershipPolicy()
	if p.Can(context.Background(), 1, policy.ActionView, &mockNonOwnable{ID: 1}) {
		t.Error("Expected non-ownable resource to be denied")
	}
}

func TestTenantGuard_ForeignIsNotFound(t *testing.T) {
	g := policy.NewTenantGuard()
	ctx := context.Background()
	prop := &models.Proposal{ID: 5, PartnerID: 1}

	if err := g.Check(ctx, 1, policy.ActionUpdate, policy.ResourceProposal, prop); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	err := g.Check(ctx, 2, policy.ActionUpdate, policy.ResourceProposal, prop)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign partner, got %v", err)
	}
	if errors.Is(err, policy.ErrNoPolicyDefined) {
		t.Fatal("denial must read as a missing row")
	}
}

func TestTenantGuard_UnregisteredResource(t *testing.T) {
	g := policy.NewTenantGuard()
	err := g.Check(context.Background(), 1, policy.ActionView, "report", &mockOwnable{partnerID: 1})
	if !errors.Is(err, policy.ErrNoPolicyDefined) {
		t.Fatalf("expected ErrNoPolicyDefined, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	g := policy.NewTenantGuard()
	ctx := context.Background()
	client := &models.Client{ID: 3, PartnerID: 7}
	find := func() (*models.Client, error) { return client, nil }

	got, err := policy.Load(ctx, g, 7, policy.ActionView, policy.ResourceClient, find)
	if err != nil || got.ID != 3 {
		t.Fatalf("owner load failed: %v %#v", err, got)
	}
	got, err = policy.Load(ctx, g, 8, policy.ActionView, policy.ResourceClient, find)
	if !errors.Is(err, errs.ErrNotFound) || got != nil {
		t.Fatalf("expected ErrNotFound and nil, got %v %#v", err, got)
	}

	missing := func() (*models.Client, error) { return nil, errs.ErrNotFound }
	if _, err := policy.Load(ctx, g, 7, policy.ActionView, policy.ResourceClient, missing); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
}
