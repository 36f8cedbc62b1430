package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-partners/internal/db"
	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/store"
	"github.com/diewo77/go-partners/validation"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// PartnerService covers partner accounts: admin management and sign in.
type PartnerService struct {
	store *store.Store
}

func NewPartnerService(st *store.Store) *PartnerService {
	return &PartnerService{store: st}
}

type PartnerInput struct {
	CompanyName    string               `json:"company_name"`
	Email          string               `json:"email"`
	Password       string               `json:"password"`
	Phone          string               `json:"phone"`
	CommissionRate decimal.Decimal      `json:"commission_rate"`
	Status         models.PartnerStatus `json:"status"`
}

// PartnerPatch is a partial admin update; nil fields are left unchanged.
type PartnerPatch struct {
	CompanyName    *string               `json:"company_name"`
	Email          *string               `json:"email"`
	Password       *string               `json:"password"`
	Phone          *string               `json:"phone"`
	CommissionRate *decimal.Decimal      `json:"commission_rate"`
	Status         *models.PartnerStatus `json:"status"`
}

var (
	hundred = decimal.NewFromInt(100)

	// dummyHash keeps the sign in timing the same whether or not the email exists.
	dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-password"), bcrypt.DefaultCost)
)

func validatePartner(p *models.Partner, v validation.Violations) {
	validation.Required("company_name", p.CompanyName, v)
	validation.Required("email", p.Email, v)
	validation.Email("email", p.Email, v)
	validation.RangeDecimal("commission_rate", p.CommissionRate, decimal.Zero, hundred, v)
	validation.OneOf("status", string(p.Status), models.PartnerStatuses, v)
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (s *PartnerService) Create(ctx context.Context, in PartnerInput) (*models.Partner, error) {
	p := &models.Partner{
		CompanyName:    strings.TrimSpace(in.CompanyName),
		Email:          normalizeEmail(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		CommissionRate: in.CommissionRate,
		Status:         in.Status,
	}
	if p.Status == "" {
		p.Status = models.PartnerStatusPending
	}
	v := make(validation.Violations)
	validatePartner(p, v)
	validation.MinLength("password", in.Password, 8, v)
	if err := errs.Invalid(v); err != nil {
		return nil, err
	}
	hash, err := db.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	p.Password = hash
	if err := s.store.CreatePartner(ctx, p); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return nil, errs.Field("email", "already_exists")
		}
		return nil, err
	}
	return p, nil
}

func (s *PartnerService) Get(ctx context.Context, id uint) (*models.Partner, error) {
	return s.store.PartnerByID(ctx, id)
}

func (s *PartnerService) List(ctx context.Context, status, q string, page store.Page) ([]models.Partner, int64, error) {
	if status != "" {
		v := make(validation.Violations)
		validation.OneOf("status", status, models.PartnerStatuses, v)
		if err := errs.Invalid(v); err != nil {
			return nil, 0, err
		}
	}
	return s.store.ListPartners(ctx, status, q, page)
}

// Update applies an admin patch. Deactivation is a status change; partners
// are never hard deleted.
func (s *PartnerService) Update(ctx context.Context, id uint, patch PartnerPatch) (*models.Partner, error) {
	var out *models.Partner
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		p, err := tx.PartnerByID(ctx, id)
		if err != nil {
			return err
		}
		if patch.CompanyName != nil {
			p.CompanyName = strings.TrimSpace(*patch.CompanyName)
		}
		if patch.Email != nil {
			p.Email = normalizeEmail(*patch.Email)
		}
		if patch.Phone != nil {
			p.Phone = strings.TrimSpace(*patch.Phone)
		}
		if patch.CommissionRate != nil {
			p.CommissionRate = *patch.CommissionRate
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		v := make(validation.Violations)
		validatePartner(p, v)
		if patch.Password != nil {
			validation.MinLength("password", *patch.Password, 8, v)
		}
		if err := errs.Invalid(v); err != nil {
			return err
		}
		if patch.Password != nil {
			if p.Password, err = db.HashPassword(*patch.Password); err != nil {
				return err
			}
		}
		if err := tx.UpdatePartner(ctx, p); err != nil {
			if errors.Is(err, errs.ErrConflict) {
				return errs.Field("email", "already_exists")
			}
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *PartnerService) Stats(ctx context.Context) (store.PartnerStats, error) {
	return s.store.PartnerStats(ctx)
}

// IsActive reports whether the partner may use the API.
func (s *PartnerService) IsActive(ctx context.Context, id uint) bool {
	p, err := s.store.PartnerByID(ctx, id)
	return err == nil && p.IsActive()
}

func (s *PartnerService) AdminExists(ctx context.Context, id uint) bool {
	ok, err := s.store.AdminExists(ctx, id)
	return err == nil && ok
}

// AuthenticatePartner checks the credentials of an ACTIVE partner. Every
// failure is reported as errs.ErrUnauthorized.
func (s *PartnerService) AuthenticatePartner(ctx context.Context, email, password string) (*models.Partner, error) {
	p, err := s.store.PartnerByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(password)) != nil {
		return nil, errs.ErrUnauthorized
	}
	if !p.IsActive() {
		return nil, fmt.Errorf("partner %d is %s: %w", p.ID, p.Status, errs.ErrUnauthorized)
	}
	return p, nil
}

func (s *PartnerService) AuthenticateAdmin(ctx context.Context, email, password string) (*models.AdminUser, error) {
	a, err := s.store.AdminByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, errs.ErrUnauthorized
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.Password), []byte(password)) != nil {
		return nil, errs.ErrUnauthorized
	}
	return a, nil
}
