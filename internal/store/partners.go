package store

import (
	"context"

	"github.com/diewo77/go-partners/internal/models"
)

func (s *Store) CreatePartner(ctx context.Context, p *models.Partner) error {
	return wrap(s.conn(ctx).Create(p).Error, "create partner %q", p.Email)
}

func (s *Store) PartnerByID(ctx context.Context, id uint) (*models.Partner, error) {
	var p models.Partner
	if err := s.conn(ctx).First(&p, id).Error; err != nil {
		return nil, wrap(err, "partner %d", id)
	}
	return &p, nil
}

func (s *Store) PartnerByEmail(ctx context.Context, email string) (*models.Partner, error) {
	var p models.Partner
	if err := s.conn(ctx).Where("email = ?", email).First(&p).Error; err != nil {
		return nil, wrap(err, "partner %q", email)
	}
	return &p, nil
}

// ListPartners returns partners ordered by ID, optionally filtered by status
// and a company name/email search.
func (s *Store) ListPartners(ctx context.Context, status, q string, page Page) ([]models.Partner, int64, error) {
	page = page.normalize()
	db := s.conn(ctx).Model(&models.Partner{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if q != "" {
		pat := likePattern(q)
		db = db.Where("LOWER(company_name) LIKE ? OR LOWER(email) LIKE ?", pat, pat)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, wrap(err, "count partners")
	}
	var out []models.Partner
	if err := db.Order("id").Limit(page.Limit).Offset(page.offset()).Find(&out).Error; err != nil {
		return nil, 0, wrap(err, "list partners")
	}
	return out, total, nil
}

// UpdatePartner writes the editable profile fields.
func (s *Store) UpdatePartner(ctx context.Context, p *models.Partner) error {
	res := s.conn(ctx).Model(&models.Partner{}).Where("id = ?", p.ID).Updates(map[string]any{
		"company_name":    p.CompanyName,
		"email":           p.Email,
		"phone":           p.Phone,
		"commission_rate": p.CommissionRate,
		"status":          p.Status,
		"password":        p.Password,
	})
	if res.Error != nil {
		return wrap(res.Error, "update partner %d", p.ID)
	}
	if res.RowsAffected == 0 {
		return wrap(errRecordNotFound, "partner %d", p.ID)
	}
	return nil
}

// ActivePartners returns ACTIVE partners ordered by ID ascending.
func (s *Store) ActivePartners(ctx context.Context) ([]models.Partner, error) {
	var out []models.Partner
	err := s.conn(ctx).Where("status = ?", models.PartnerStatusActive).Order("id").Find(&out).Error
	return out, wrap(err, "active partners")
}

type PartnerStats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Pending   int64 `json:"pending"`
	Inactive  int64 `json:"inactive"`
	Suspended int64 `json:"suspended"`
}

func (s *Store) PartnerStats(ctx context.Context) (PartnerStats, error) {
	var rows []struct {
		Status models.PartnerStatus
		N      int64
	}
	err := s.conn(ctx).Model(&models.Partner{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return PartnerStats{}, wrap(err, "partner stats")
	}
	var st PartnerStats
	for _, r := range rows {
		st.Total += r.N
		switch r.Status {
		case models.PartnerStatusActive:
			st.Active = r.N
		case models.PartnerStatusPending:
			st.Pending = r.N
		case models.PartnerStatusInactive:
			st.Inactive = r.N
		case models.PartnerStatusSuspended:
			st.Suspended = r.N
		}
	}
	return st, nil
}

func (s *Store) CreateAdmin(ctx context.Context, a *models.AdminUser) error {
	return wrap(s.conn(ctx).Create(a).Error, "create admin %q", a.Email)
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var a models.AdminUser
	if err := s.conn(ctx).Where("email = ?", email).First(&a).Error; err != nil {
		return nil, wrap(err, "admin %q", email)
	}
	return &a, nil
}

func (s *Store) AdminExists(ctx context.Context, id uint) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.AdminUser{}).Where("id = ?", id).Count(&n).Error
	return n > 0, wrap(err, "admin %d", id)
}
