// Package proposal implements the proposal lifecycle:
//
//	DRAFT -> SENT -> APPROVED | REJECTED
//
// The owner edits a proposal and moves it between DRAFT and SENT. Only the
// prospect, holding the public token, can move a SENT proposal to a terminal
// status. The total is always recomputed from the items.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/metrics"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/policy"
	"github.com/diewo77/go-partners/internal/store"
	"github.com/diewo77/go-partners/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxTokenAttempts bounds the retries on a token collision.
const maxTokenAttempts = 5

var ErrTokenExhausted = errors.New("could not allocate a unique public token")

type ItemInput struct {
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
}

type CreateInput struct {
	Title       string      `json:"title"`
	ClientName  string      `json:"client_name"`
	ClientEmail string      `json:"client_email"`
	Scope       string      `json:"scope"`
	ValidUntil  time.Time   `json:"valid_until"`
	Items       []ItemInput `json:"items"`
}

// Patch is a partial owner update. Nil fields are left unchanged; a non-nil
// Items replaces the whole item set, an empty slice clears it.
type Patch struct {
	Title       *string                `json:"title"`
	ClientName  *string                `json:"client_name"`
	ClientEmail *string                `json:"client_email"`
	Scope       *string                `json:"scope"`
	ValidUntil  *time.Time             `json:"valid_until"`
	Status      *models.ProposalStatus `json:"status"`
	Items       *[]ItemInput           `json:"items"`
}

type Option func(*Service)

// WithTokenGenerator replaces NewToken.
func WithTokenGenerator(gen func() string) Option {
	return func(s *Service) { s.newToken = gen }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

type Service struct {
	store    *store.Store
	guard    *policy.TenantGuard
	newToken func() string
	log      *zap.Logger
}

func NewService(st *store.Store, guard *policy.TenantGuard, opts ...Option) *Service {
	s := &Service{store: st, guard: guard, newToken: NewToken, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create stores a new DRAFT proposal for partnerID with a fresh public token.
func (s *Service) Create(ctx context.Context, partnerID uint, in CreateInput) (*models.Proposal, error) {
	v := make(validation.Violations)
	validation.Required("title", in.Title, v)
	validation.Required("client_name", in.ClientName, v)
	validation.Required("scope", in.Scope, v)
	validation.Email("client_email", in.ClientEmail, v)
	if in.ValidUntil.IsZero() {
		v["valid_until"] = "required"
	}
	items := buildItems(in.Items, v)
	if err := errs.Invalid(v); err != nil {
		return nil, err
	}

	p := &models.Proposal{
		PartnerID:   partnerID,
		Title:       strings.TrimSpace(in.Title),
		ClientName:  strings.TrimSpace(in.ClientName),
		ClientEmail: strings.TrimSpace(in.ClientEmail),
		Scope:       in.Scope,
		ValidUntil:  in.ValidUntil,
		Status:      models.ProposalStatusDraft,
		Items:       items,
	}
	p.TotalValue = p.ComputeTotal()

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token := s.newToken()
		taken, err := s.store.TokenExists(ctx, token)
		if err != nil {
			return nil, err
		}
		if taken {
			s.log.Warn("public token collision", zap.Int("attempt", attempt))
			continue
		}
		p.PublicToken = token
		err = s.store.CreateProposal(ctx, p)
		if errors.Is(err, errs.ErrConflict) {
			// Lost a race on the unique index; reset and draw again.
			p.ID = 0
			for i := range p.Items {
				p.Items[i].ID = 0
				p.Items[i].ProposalID = 0
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		metrics.ProposalsCreated.Inc()
		s.log.Info("proposal created",
			zap.Uint("partner_id", partnerID),
			zap.Uint("proposal_id", p.ID),
			zap.String("total", p.TotalValue.StringFixed(2)))
		return p, nil
	}
	return nil, ErrTokenExhausted
}

// Get returns one of the partner's proposals.
func (s *Service) Get(ctx context.Context, partnerID, id uint) (*models.Proposal, error) {
	return policy.Load(ctx, s.guard, partnerID, policy.ActionView, policy.ResourceProposal,
		func() (*models.Proposal, error) { return s.store.ProposalByID(ctx, id) })
}

// List returns the partner's proposals, newest first.
func (s *Service) List(ctx context.Context, partnerID uint, status string, page store.Page) ([]models.Proposal, int64, error) {
	if status != "" && !models.ProposalStatus(status).Valid() {
		return nil, 0, errs.Field("status", "invalid_value")
	}
	return s.store.ListProposals(ctx, partnerID, status, page)
}

// Update applies an owner patch. It is rejected once the proposal is
// terminal, and the owner may only set DRAFT or SENT.
func (s *Service) Update(ctx context.Context, partnerID, id uint, patch Patch) (*models.Proposal, error) {
	var out *models.Proposal
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		p, err := policy.Load(ctx, s.guard, partnerID, policy.ActionUpdate, policy.ResourceProposal,
			func() (*models.Proposal, error) { return tx.ProposalByID(ctx, id) })
		if err != nil {
			return err
		}
		if !p.CanEdit() {
			return fmt.Errorf("proposal %d is %s: %w", id, p.Status, errs.ErrInvalidTransition)
		}
		prior := p.Status

		v := make(validation.Violations)
		applyText(&p.Title, patch.Title, "title", true, v)
		applyText(&p.ClientName, patch.ClientName, "client_name", true, v)
		applyText(&p.ClientEmail, patch.ClientEmail, "client_email", false, v)
		applyText(&p.Scope, patch.Scope, "scope", true, v)
		validation.Email("client_email", p.ClientEmail, v)
		if patch.ValidUntil != nil {
			if patch.ValidUntil.IsZero() {
				v["valid_until"] = "required"
			}
			p.ValidUntil = *patch.ValidUntil
		}
		if patch.Status != nil {
			switch *patch.Status {
			case models.ProposalStatusDraft, models.ProposalStatusSent:
				p.Status = *patch.Status
			default:
				v["status"] = "not_allowed"
			}
		}
		replace := patch.Items != nil
		if replace {
			p.Items = buildItems(*patch.Items, v)
		}
		if err := errs.Invalid(v); err != nil {
			return err
		}
		p.TotalValue = p.ComputeTotal()

		if err := tx.UpdateProposal(ctx, partnerID, prior, p, replace); err != nil {
			if errors.Is(err, store.ErrStale) {
				return fmt.Errorf("proposal %d changed while updating: %w", id, errs.ErrInvalidTransition)
			}
			return err
		}
		if prior != p.Status {
			metrics.RecordTransition(string(prior), string(p.Status))
		}
		out, err = tx.ProposalByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("proposal updated",
		zap.Uint("partner_id", partnerID),
		zap.Uint("proposal_id", id),
		zap.String("status", string(out.Status)))
	return out, nil
}

// Delete removes one of the partner's proposals, in any status.
func (s *Service) Delete(ctx context.Context, partnerID, id uint) error {
	return s.store.Transaction(ctx, func(tx *store.Store) error {
		p, err := policy.Load(ctx, s.guard, partnerID, policy.ActionDelete, policy.ResourceProposal,
			func() (*models.Proposal, error) { return tx.ProposalByID(ctx, id) })
		if err != nil {
			return err
		}
		return tx.DeleteProposal(ctx, partnerID, p.ID)
	})
}

// PublicView returns the proposal behind a public token.
func (s *Service) PublicView(ctx context.Context, token string) (*models.Proposal, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errs.ErrNotFound
	}
	return s.store.ProposalByToken(ctx, token)
}

// PublicTransition lets the prospect approve or reject a SENT proposal.
//
// The move is a single conditional UPDATE on (token, status = SENT). When it
// changes nothing the row is read back: if it already holds the requested
// status the call is a replay and succeeds without writing, otherwise the
// transition is invalid. Two racing answers therefore persist at most one
// terminal status.
func (s *Service) PublicTransition(ctx context.Context, token string, target models.ProposalStatus) (*models.Proposal, error) {
	if !target.IsTerminal() {
		return nil, errs.Field("status", "invalid_value")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errs.ErrNotFound
	}

	n, err := s.store.TransitionByToken(ctx, token, models.ProposalStatusSent, target)
	if err != nil {
		return nil, err
	}
	p, err := s.store.ProposalByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if n == 1 {
		metrics.RecordTransition(string(models.ProposalStatusSent), string(target))
		s.log.Info("proposal answered",
			zap.Uint("proposal_id", p.ID),
			zap.String("status", string(target)))
		return p, nil
	}
	if p.Status == target {
		return p, nil
	}
	return nil, fmt.Errorf("proposal %d is %s, cannot become %s: %w", p.ID, p.Status, target, errs.ErrInvalidTransition)
}

func buildItems(in []ItemInput, v validation.Violations) []models.ProposalItem {
	items := make([]models.ProposalItem, 0, len(in))
	for i, it := range in {
		prefix := "items." + strconv.Itoa(i) + "."
		value := it.Value.Round(2)
		validation.Required(prefix+"description", it.Description, v)
		validation.PositiveDecimal(prefix+"value", value, v)
		items = append(items, models.ProposalItem{
			Description: strings.TrimSpace(it.Description),
			Value:       value,
			Position:    i,
		})
	}
	return items
}

func applyText(dst *string, src *string, field string, required bool, v validation.Violations) {
	if src == nil {
		return
	}
	if required {
		validation.Required(field, *src, v)
	}
	*dst = strings.TrimSpace(*src)
}
