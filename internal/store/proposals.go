package store

import (
	"context"
	"time"

	"github.com/diewo77/go-partners/internal/models"
	"gorm.io/gorm"
)

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

// CreateProposal inserts the proposal and its items in one statement batch.
func (s *Store) CreateProposal(ctx context.Context, p *models.Proposal) error {
	for i := range p.Items {
		p.Items[i].Position = i
	}
	return wrap(s.conn(ctx).Create(p).Error, "create proposal")
}

func (s *Store) ProposalByID(ctx context.Context, id uint) (*models.Proposal, error) {
	var p models.Proposal
	if err := s.conn(ctx).Preload("Items", orderedItems).First(&p, id).Error; err != nil {
		return nil, wrap(err, "proposal %d", id)
	}
	return &p, nil
}

func (s *Store) ProposalByToken(ctx context.Context, token string) (*models.Proposal, error) {
	var p models.Proposal
	err := s.conn(ctx).Preload("Items", orderedItems).Where("public_token = ?", token).First(&p).Error
	if err != nil {
		return nil, wrap(err, "proposal by token")
	}
	return &p, nil
}

func (s *Store) TokenExists(ctx context.Context, token string) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Proposal{}).Where("public_token = ?", token).Count(&n).Error
	return n > 0, wrap(err, "check token")
}

// ListProposals returns the partner's proposals newest first, items included.
func (s *Store) ListProposals(ctx context.Context, partnerID uint, status string, page Page) ([]models.Proposal, int64, error) {
	page = page.normalize()
	db := s.conn(ctx).Model(&models.Proposal{}).Where("partner_id = ?", partnerID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, wrap(err, "count proposals")
	}
	var out []models.Proposal
	err := db.Preload("Items", orderedItems).
		Order("created_at DESC, id DESC").
		Limit(page.Limit).Offset(page.offset()).
		Find(&out).Error
	if err != nil {
		return nil, 0, wrap(err, "list proposals")
	}
	return out, total, nil
}

// UpdateProposal writes the owner editable fields, guarded by partner and by
// the status read earlier in the transaction. When replaceItems is set the
// stored items are swapped for p.Items. Returns ErrStale if the guard fails.
func (s *Store) UpdateProposal(ctx context.Context, partnerID uint, expected models.ProposalStatus, p *models.Proposal, replaceItems bool) error {
	res := s.conn(ctx).Model(&models.Proposal{}).
		Where("id = ? AND partner_id = ? AND status = ?", p.ID, partnerID, expected).
		Updates(map[string]any{
			"title":        p.Title,
			"client_name":  p.ClientName,
			"client_email": p.ClientEmail,
			"scope":        p.Scope,
			"valid_until":  p.ValidUntil,
			"status":       p.Status,
			"total_value":  p.TotalValue,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return wrap(res.Error, "update proposal %d", p.ID)
	}
	if res.RowsAffected == 0 {
		return ErrStale
	}
	if !replaceItems {
		return nil
	}
	if err := s.conn(ctx).Where("proposal_id = ?", p.ID).Delete(&models.ProposalItem{}).Error; err != nil {
		return wrap(err, "clear items of proposal %d", p.ID)
	}
	if len(p.Items) == 0 {
		return nil
	}
	for i := range p.Items {
		p.Items[i].ID = 0
		p.Items[i].ProposalID = p.ID
		p.Items[i].Position = i
	}
	return wrap(s.conn(ctx).Create(&p.Items).Error, "insert items of proposal %d", p.ID)
}

// TransitionByToken moves the proposal from one status to another in a single
// conditional UPDATE and reports how many rows changed (0 or 1).
func (s *Store) TransitionByToken(ctx context.Context, token string, from, to models.ProposalStatus) (int64, error) {
	res := s.conn(ctx).Model(&models.Proposal{}).
		Where("public_token = ? AND status = ?", token, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, wrap(res.Error, "transition proposal to %s", to)
	}
	return res.RowsAffected, nil
}

// DeleteProposal removes the proposal and its items. Run it in a transaction.
func (s *Store) DeleteProposal(ctx context.Context, partnerID, id uint) error {
	owned := s.conn(ctx).Model(&models.Proposal{}).Select("id").Where("id = ? AND partner_id = ?", id, partnerID)
	if err := s.conn(ctx).Where("proposal_id IN (?)", owned).Delete(&models.ProposalItem{}).Error; err != nil {
		return wrap(err, "delete items of proposal %d", id)
	}
	res := s.conn(ctx).Where("id = ? AND partner_id = ?", id, partnerID).Delete(&models.Proposal{})
	if res.Error != nil {
		return wrap(res.Error, "delete proposal %d", id)
	}
	if res.RowsAffected == 0 {
		return wrap(errRecordNotFound, "proposal %d", id)
	}
	return nil
}
