package store

import (
	"context"
	"time"

	"github.com/diewo77/go-partners/internal/models"
	"gorm.io/gorm"
)

func (s *Store) CreateClient(ctx context.Context, c *models.Client) error {
	return wrap(s.conn(ctx).Create(c).Error, "create client")
}

// ClientByID loads a client by primary key only. Ownership is checked by the caller.
func (s *Store) ClientByID(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, wrap(err, "client %d", id)
	}
	return &c, nil
}

// ClientWithServices loads a client and all its services, cancelled ones included.
func (s *Store) ClientWithServices(ctx context.Context, id uint) (*models.Client, error) {
	var c models.Client
	err := s.conn(ctx).
		Preload("Services", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&c, id).Error
	if err != nil {
		return nil, wrap(err, "client %d", id)
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context, partnerID uint, q, status string, page Page) ([]models.Client, int64, error) {
	page = page.normalize()
	db := s.conn(ctx).Model(&models.Client{}).Where("partner_id = ?", partnerID)
	if q != "" {
		pat := likePattern(q)
		db = db.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pat, pat)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, wrap(err, "count clients")
	}
	var out []models.Client
	if err := db.Order("name").Limit(page.Limit).Offset(page.offset()).Find(&out).Error; err != nil {
		return nil, 0, wrap(err, "list clients")
	}
	return out, total, nil
}

func (s *Store) UpdateClient(ctx context.Context, partnerID uint, c *models.Client) error {
	res := s.conn(ctx).Model(&models.Client{}).
		Where("id = ? AND partner_id = ?", c.ID, partnerID).
		Updates(map[string]any{
			"name":       c.Name,
			"email":      c.Email,
			"phone":      c.Phone,
			"status":     c.Status,
			"start_date": c.StartDate,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return wrap(res.Error, "update client %d", c.ID)
	}
	if res.RowsAffected == 0 {
		return wrap(errRecordNotFound, "client %d", c.ID)
	}
	return nil
}

// DeleteClient removes a client and its services. Run it in a transaction.
func (s *Store) DeleteClient(ctx context.Context, partnerID, id uint) error {
	owned := s.conn(ctx).Model(&models.Client{}).Select("id").Where("id = ? AND partner_id = ?", id, partnerID)
	if err := s.conn(ctx).Where("client_id IN (?)", owned).Delete(&models.Service{}).Error; err != nil {
		return wrap(err, "delete services of client %d", id)
	}
	res := s.conn(ctx).Where("id = ? AND partner_id = ?", id, partnerID).Delete(&models.Client{})
	if res.Error != nil {
		return wrap(res.Error, "delete client %d", id)
	}
	if res.RowsAffected == 0 {
		return wrap(errRecordNotFound, "client %d", id)
	}
	return nil
}

func (s *Store) CountActiveClients(ctx context.Context, partnerID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Client{}).
		Where("partner_id = ? AND status = ?", partnerID, models.ClientStatusActive).
		Count(&n).Error
	return n, wrap(err, "count active clients")
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	return wrap(s.conn(ctx).Create(svc).Error, "create service")
}

// ServiceByID loads a service and fills PartnerID from its client.
func (s *Store) ServiceByID(ctx context.Context, id uint) (*models.Service, error) {
	var svc models.Service
	if err := s.conn(ctx).First(&svc, id).Error; err != nil {
		return nil, wrap(err, "service %d", id)
	}
	var c models.Client
	if err := s.conn(ctx).Select("id", "partner_id").First(&c, svc.ClientID).Error; err != nil {
		return nil, wrap(err, "client of service %d", id)
	}
	svc.PartnerID = c.PartnerID
	return &svc, nil
}

func (s *Store) ListServices(ctx context.Context, clientID uint) ([]models.Service, error) {
	var out []models.Service
	err := s.conn(ctx).Where("client_id = ?", clientID).Order("id").Find(&out).Error
	return out, wrap(err, "list services of client %d", clientID)
}

func (s *Store) ownedClientIDs(ctx context.Context, partnerID uint) *gorm.DB {
	return s.conn(ctx).Model(&models.Client{}).Select("id").Where("partner_id = ?", partnerID)
}

// UpdateService renames a running service. The fee is never rewritten in
// place: past months are computed from it.
func (s *Store) UpdateService(ctx context.Context, partnerID uint, svc *models.Service) error {
	res := s.conn(ctx).Model(&models.Service{}).
		Where("id = ? AND cancelled_at IS NULL AND client_id IN (?)", svc.ID, s.ownedClientIDs(ctx, partnerID)).
		Updates(map[string]any{
			"description": svc.Description,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return wrap(res.Error, "update service %d", svc.ID)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}

// CancelService stamps CancelledAt once. The row is kept for history.
func (s *Store) CancelService(ctx context.Context, partnerID, id uint, at time.Time) error {
	res := s.conn(ctx).Model(&models.Service{}).
		Where("id = ? AND cancelled_at IS NULL AND client_id IN (?)", id, s.ownedClientIDs(ctx, partnerID)).
		Updates(map[string]any{"cancelled_at": at, "updated_at": time.Now()})
	if res.Error != nil {
		return wrap(res.Error, "cancel service %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	return nil
}
