package proposal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/policy"
	"github.com/diewo77/go-partners/internal/store"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setup(t *testing.T, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&models.Partner{}, &models.Proposal{}, &models.ProposalItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, p := range []models.Partner{
		{CompanyName: "Alpha", Email: "alpha@example.com", Password: "x", Status: models.PartnerStatusActive},
		{CompanyName: "Beta", Email: "beta@example.com", Password: "x", Status: models.PartnerStatusActive},
	} {
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("seed partner: %v", err)
		}
	}
	st := store.New(db)
	return NewService(st, policy.NewTenantGuard(), opts...), st
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func validInput() CreateInput {
	return CreateInput{
		Title:       "Website redesign",
		ClientName:  "ACME",
		ClientEmail: "buyer@acme.test",
		Scope:       "Five pages and a blog",
		ValidUntil:  time.Now().Add(30 * 24 * time.Hour),
		Items: []ItemInput{
			{Description: "Design", Value: dec("1000")},
			{Description: "Dev", Value: dec("500.50")},
		},
	}
}

func statusPtr(s models.ProposalStatus) *models.ProposalStatus { return &s }

func TestCreate_ComputesTotalAndToken(t *testing.T) {
	svc, _ := setup(t)
	p, err := svc.Create(context.Background(), 1, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.Status != models.ProposalStatusDraft {
		t.Fatalf("expected DRAFT got %s", p.Status)
	}
	if !p.TotalValue.Equal(dec("1500.50")) {
		t.Fatalf("expected total 1500.50 got %s", p.TotalValue)
	}
	if len(p.PublicToken) != 32 {
		t.Fatalf("expected a 32 char token got %q", p.PublicToken)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := setup(t)
	in := validInput()
	in.Title = " "
	in.ClientEmail = "not-an-email"
	in.Items = append(in.Items, ItemInput{Description: "Free", Value: dec("0")})
	_, err := svc.Create(context.Background(), 1, in)
	var ve *errs.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error got %v", err)
	}
	for _, f := range []string{"title", "client_email", "items.2.value"} {
		if _, ok := ve.Violations[f]; !ok {
			t.Errorf("missing violation for %s: %v", f, ve.Violations)
		}
	}
}

func TestCreate_RetriesOnTokenCollision(t *testing.T) {
	tokens := []string{"tok-a", "tok-a", "tok-b"}
	var mu sync.Mutex
	gen := func() string {
		mu.Lock()
		defer mu.Unlock()
		tok := tokens[0]
		tokens = tokens[1:]
		return tok
	}
	svc, _ := setup(t, WithTokenGenerator(gen))
	first, err := svc.Create(context.Background(), 1, validInput())
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	second, err := svc.Create(context.Background(), 1, validInput())
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.PublicToken != "tok-a" || second.PublicToken != "tok-b" {
		t.Fatalf("unexpected tokens %q %q", first.PublicToken, second.PublicToken)
	}
}

func TestCreate_GivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, _ := setup(t, WithTokenGenerator(func() string { return "same" }))
	if _, err := svc.Create(context.Background(), 1, validInput()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.Create(context.Background(), 1, validInput())
	if !errors.Is(err, ErrTokenExhausted) {
		t.Fatalf("expected ErrTokenExhausted got %v", err)
	}
}

func TestUpdate_ReplacesItemsAndRecomputesTotal(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, 1, validInput())
	items := []ItemInput{{Description: "Audit", Value: dec("250")}}
	title := "Audit only"
	got, err := svc.Update(ctx, 1, p.ID, Patch{Title: &title, Items: &items})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Title != title || len(got.Items) != 1 || !got.TotalValue.Equal(dec("250")) {
		t.Fatalf("unexpected proposal after update: %+v", got)
	}
	if got.PublicToken != p.PublicToken {
		t.Fatal("public token must not change on update")
	}
}

func TestUpdate_OwnerCannotSetTerminalStatus(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, 1, validInput())
	_, err := svc.Update(ctx, 1, p.ID, Patch{Status: statusPtr(models.ProposalStatusApproved)})
	var ve *errs.ValidationError
	if !errors.As(err, &ve) || ve.Violations["status"] != "not_allowed" {
		t.Fatalf("expected status not_allowed got %v", err)
	}
}

func TestUpdate_ForeignPartnerSeesNotFound(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, 1, validInput())
	title := "hijack"
	_, err := svc.Update(ctx, 2, p.ID, Patch{Title: &title})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
	_, err = svc.Update(ctx, 2, 9999, Patch{Title: &title})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for missing id got %v", err)
	}
	if _, err := svc.Get(ctx, 2, p.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found on get got %v", err)
	}
}

func TestUpdate_TerminalProposalIsFrozen(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, 1, validInput())
	if _, err := svc.Update(ctx, 1, p.ID, Patch{Status: statusPtr(models.ProposalStatusSent)}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.PublicTransition(ctx, p.PublicToken, models.ProposalStatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	title := "late edit"
	_, err := svc.Update(ctx, 1, p.ID, Patch{Title: &title})
	if !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition got %v", err)
	}
}

func TestPublicTransition(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, 1, validInput())

	// DRAFT cannot be answered.
	if _, err := svc.PublicTransition(ctx, p.PublicToken, models.ProposalStatusApproved); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from DRAFT got %v", err)
	}
	if _, err := svc.Update(ctx, 1, p.ID, Patch{Status: statusPtr(models.ProposalStatusSent)}); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := svc.PublicTransition(ctx, p.PublicToken, models.ProposalStatusApproved)
	if err != nil || got.Status != models.ProposalStatusApproved {
		t.Fatalf("approve: %v %+v", err, got)
	}
	// Replay of the same answer succeeds.
	if _, err := svc.PublicTransition(ctx, p.PublicToken, models.ProposalStatusApproved); err != nil {
		t.Fatalf("replay: %v", err)
	}
	// The opposite answer is refused.
	if _, err := svc.PublicTransition(ctx, p.PublicToken, models.ProposalStatusRejected); !errors.Is(err, errs.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition got %v", err)
	}
	if _, err := svc.PublicTransition(ctx, p.PublicToken, models.ProposalStatusSent); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for non terminal target got %v", err)
	}
	if _, err := svc.PublicTransition(ctx, "unknown", models.ProposalStatusApproved); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestPublicTransition_RacingAnswers(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()
	p, _ := svc.Create(ctx, 1, validInput())
	if _, err := svc.Update(ctx, 1, p.ID, Patch{Status: statusPtr(models.ProposalStatusSent)}); err != nil {
		t.Fatalf("send: %v", err)
	}

	const n = 8
	type result struct {
		target models.ProposalStatus
		err    error
	}
	results := make(chan result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		target := models.ProposalStatusApproved
		if i%2 == 1 {
			target = models.ProposalStatusRejected
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PublicTransition(ctx, p.PublicToken, target)
			results <- result{target, err}
		}()
	}
	wg.Wait()
	close(results)

	final, err := st.ProposalByToken(ctx, p.PublicToken)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !final.Status.IsTerminal() {
		t.Fatalf("expected terminal status got %s", final.Status)
	}
	for r := range results {
		if r.target == final.Status && r.err != nil {
			t.Errorf("answer %s matching the stored status failed: %v", r.target, r.err)
		}
		if r.target != final.Status && !errors.Is(r.err, errs.ErrInvalidTransition) {
			t.Errorf("answer %s should have lost, got %v", r.target, r.err)
		}
	}
}

func TestDeleteAndList(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	a, _ := svc.Create(ctx, 1, validInput())
	_, _ = svc.Create(ctx, 1, validInput())
	if err := svc.Delete(ctx, 2, a.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("foreign delete should be not found, got %v", err)
	}
	if err := svc.Delete(ctx, 1, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, total, err := svc.List(ctx, 1, "", store.Page{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(list) != 1 {
		t.Fatalf("expected 1 proposal got total=%d len=%d", total, len(list))
	}
	if _, _, err := svc.List(ctx, 1, "bogus", store.Page{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error for bad status filter got %v", err)
	}
}

func TestCreate_ItemValueRoundedBeforeValidation(t *testing.T) {
	svc, _ := setup(t)
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"0.004", true},
		{"-0.001", true},
		{"0.005", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			in := validInput()
			in.Items = []ItemInput{{Description: "Tiny", Value: dec(tt.value)}}
			p, err := svc.Create(context.Background(), 1, in)
			if tt.wantErr {
				var ve *errs.ValidationError
				if !errors.As(err, &ve) || ve.Violations["items.0.value"] != "must_be_positive" {
					t.Fatalf("expected items.0.value must_be_positive, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if !p.TotalValue.Equal(dec("0.01")) {
				t.Fatalf("expected total 0.01 got %s", p.TotalValue)
			}
		})
	}
}
