package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/policy"
	"github.com/diewo77/go-partners/internal/store"
	"github.com/diewo77/go-partners/validation"
	"github.com/shopspring/decimal"
)

// ClientService manages a partner's clients and their recurring services.
// Every call is scoped to the acting partner.
type ClientService struct {
	store *store.Store
	guard *policy.TenantGuard
	now   func() time.Time
}

func NewClientService(st *store.Store, guard *policy.TenantGuard) *ClientService {
	return &ClientService{store: st, guard: guard, now: time.Now}
}

type ClientInput struct {
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Phone     string              `json:"phone"`
	Status    models.ClientStatus `json:"status"`
	StartDate *time.Time          `json:"start_date"`
}

type ServiceInput struct {
	Description string          `json:"description"`
	MonthlyFee  decimal.Decimal `json:"monthly_fee"`
}

var clientStatuses = []string{string(models.ClientStatusActive), string(models.ClientStatusInactive)}

func (in *ClientInput) validate() error {
	v := make(validation.Violations)
	validation.Required("name", in.Name, v)
	validation.Email("email", in.Email, v)
	if in.Status == "" {
		in.Status = models.ClientStatusActive
	}
	validation.OneOf("status", string(in.Status), clientStatuses, v)
	return errs.Invalid(v)
}

// validate rounds the fee to cents before checking it, so a fee that rounds
// to zero is rejected.
func (in *ServiceInput) validate() error {
	in.MonthlyFee = in.MonthlyFee.Round(2)
	v := make(validation.Violations)
	validation.Required("description", in.Description, v)
	validation.PositiveDecimal("monthly_fee", in.MonthlyFee, v)
	return errs.Invalid(v)
}

func (s *ClientService) Create(ctx context.Context, partnerID uint, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &models.Client{
		PartnerID: partnerID,
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Status:    in.Status,
		StartDate: s.now(),
	}
	if in.StartDate != nil {
		c.StartDate = *in.StartDate
	}
	if err := s.store.CreateClient(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the client with all its services, cancelled ones included.
func (s *ClientService) Get(ctx context.Context, partnerID, id uint) (*models.Client, error) {
	return policy.Load(ctx, s.guard, partnerID, policy.ActionView, policy.ResourceClient,
		func() (*models.Client, error) { return s.store.ClientWithServices(ctx, id) })
}

func (s *ClientService) List(ctx context.Context, partnerID uint, q, status string, page store.Page) ([]models.Client, int64, error) {
	if status != "" {
		v := make(validation.Violations)
		validation.OneOf("status", status, clientStatuses, v)
		if err := errs.Invalid(v); err != nil {
			return nil, 0, err
		}
	}
	return s.store.ListClients(ctx, partnerID, q, status, page)
}

func (s *ClientService) Update(ctx context.Context, partnerID, id uint, in ClientInput) (*models.Client, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *models.Client
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		c, err := policy.Load(ctx, s.guard, partnerID, policy.ActionUpdate, policy.ResourceClient,
			func() (*models.Client, error) { return tx.ClientByID(ctx, id) })
		if err != nil {
			return err
		}
		c.Name = strings.TrimSpace(in.Name)
		c.Email = strings.TrimSpace(in.Email)
		c.Phone = strings.TrimSpace(in.Phone)
		c.Status = in.Status
		if in.StartDate != nil {
			c.StartDate = *in.StartDate
		}
		if err := tx.UpdateClient(ctx, partnerID, c); err != nil {
			return err
		}
		out, err = tx.ClientWithServices(ctx, id)
		return err
	})
	return out, err
}

// Delete removes the client and its services.
func (s *ClientService) Delete(ctx context.Context, partnerID, id uint) error {
	return s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := policy.Load(ctx, s.guard, partnerID, policy.ActionDelete, policy.ResourceClient,
			func() (*models.Client, error) { return tx.ClientByID(ctx, id) }); err != nil {
			return err
		}
		return tx.DeleteClient(ctx, partnerID, id)
	})
}

// AddService starts a recurring service for one of the partner's clients.
func (s *ClientService) AddService(ctx context.Context, partnerID, clientID uint, in ServiceInput) (*models.Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *models.Service
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := policy.Load(ctx, s.guard, partnerID, policy.ActionUpdate, policy.ResourceClient,
			func() (*models.Client, error) { return tx.ClientByID(ctx, clientID) }); err != nil {
			return err
		}
		svc := &models.Service{
			ClientID:    clientID,
			Description: strings.TrimSpace(in.Description),
			MonthlyFee:  in.MonthlyFee,
			PartnerID:   partnerID,
		}
		if err := tx.CreateService(ctx, svc); err != nil {
			return err
		}
		out = svc
		return nil
	})
	return out, err
}

// UpdateService changes a running service. Cancelled services are frozen.
//
// A description change is written in place. A fee change closes the current
// row and opens a new one at the same instant, so months already covered keep
// the fee they were billed at. The returned service is the current version.
func (s *ClientService) UpdateService(ctx context.Context, partnerID, id uint, in ServiceInput) (*models.Service, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var out *models.Service
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		svc, err := policy.Load(ctx, s.guard, partnerID, policy.ActionUpdate, policy.ResourceService,
			func() (*models.Service, error) { return tx.ServiceByID(ctx, id) })
		if err != nil {
			return err
		}
		if svc.CancelledAt != nil {
			return staleService(id, store.ErrStale)
		}
		desc := strings.TrimSpace(in.Description)

		if svc.MonthlyFee.Equal(in.MonthlyFee) {
			svc.Description = desc
			if err := tx.UpdateService(ctx, partnerID, svc); err != nil {
				return staleService(id, err)
			}
			out, err = tx.ServiceByID(ctx, id)
			return err
		}

		at := s.now()
		if err := tx.CancelService(ctx, partnerID, id, at); err != nil {
			return staleService(id, err)
		}
		next := &models.Service{
			CreatedAt:   at,
			ClientID:    svc.ClientID,
			Description: desc,
			MonthlyFee:  in.MonthlyFee,
			PartnerID:   partnerID,
		}
		if err := tx.CreateService(ctx, next); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

// CancelService closes the service validity window now. The row is kept so
// past months still count it.
func (s *ClientService) CancelService(ctx context.Context, partnerID, id uint) (*models.Service, error) {
	var out *models.Service
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := policy.Load(ctx, s.guard, partnerID, policy.ActionUpdate, policy.ResourceService,
			func() (*models.Service, error) { return tx.ServiceByID(ctx, id) }); err != nil {
			return err
		}
		if err := tx.CancelService(ctx, partnerID, id, s.now()); err != nil {
			return staleService(id, err)
		}
		var err error
		out, err = tx.ServiceByID(ctx, id)
		return err
	})
	return out, err
}

func staleService(id uint, err error) error {
	if errors.Is(err, store.ErrStale) {
		return fmt.Errorf("service %d is cancelled: %w", id, errs.ErrConflict)
	}
	return err
}
