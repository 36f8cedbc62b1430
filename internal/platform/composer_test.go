package platform

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-partners/internal/errs"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/revenue"
	"github.com/shopspring/decimal"
)

var now = time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func month(year int, m time.Month, day int) time.Time {
	return time.Date(year, m, day, 0, 0, 0, 0, time.UTC)
}

// fakeDB serves both the revenue source and the platform source.
type fakeDB struct {
	mu        sync.Mutex
	partners  []models.Partner
	records   map[uint][]revenue.ServiceRecord
	activity  map[uint]Activity
	clients   []time.Time
	failOn    uint
	recordHit map[uint]int
}

func (f *fakeDB) PartnerByID(_ context.Context, id uint) (*models.Partner, error) {
	for i := range f.partners {
		if f.partners[i].ID == id {
			return &f.partners[i], nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeDB) ServiceRecords(_ context.Context, partnerID uint) ([]revenue.ServiceRecord, error) {
	f.mu.Lock()
	if f.recordHit == nil {
		f.recordHit = map[uint]int{}
	}
	f.recordHit[partnerID]++
	f.mu.Unlock()
	if partnerID == f.failOn {
		return nil, errors.New("connection reset")
	}
	return f.records[partnerID], nil
}

func (f *fakeDB) ActivePartners(context.Context) ([]models.Partner, error) {
	out := make([]models.Partner, len(f.partners))
	copy(out, f.partners)
	return out, nil
}

func (f *fakeDB) PartnerActivity(_ context.Context, id uint) (Activity, error) {
	return f.activity[id], nil
}

func (f *fakeDB) Totals(context.Context) (Totals, error) {
	var t Totals
	t.Clients = int64(len(f.clients))
	for _, a := range f.activity {
		t.Proposals += int64(a.Proposals)
	}
	return t, nil
}

func (f *fakeDB) PartnerCreationTimes(context.Context) ([]time.Time, error) {
	out := make([]time.Time, 0, len(f.partners))
	for _, p := range f.partners {
		out = append(out, p.CreatedAt)
	}
	return out, nil
}

func (f *fakeDB) ClientCreationTimes(context.Context) ([]time.Time, error) {
	return f.clients, nil
}

func (f *fakeDB) TopServices(_ context.Context, _ time.Time, limit int) ([]TopService, error) {
	return []TopService{{Name: "SEO", AverageFee: dec("250"), Count: 2}}, nil
}

func svc(id uint, fee string, created time.Time, cancelled *time.Time) revenue.ServiceRecord {
	return revenue.ServiceRecord{
		ServiceID:    id,
		ClientStatus: models.ClientStatusActive,
		MonthlyFee:   dec(fee),
		CreatedAt:    created,
		CancelledAt:  cancelled,
	}
}

func fixture() *fakeDB {
	cancelled := month(2025, time.May, 3)
	return &fakeDB{
		partners: []models.Partner{
			{ID: 1, CompanyName: "Alpha", CommissionRate: dec("10"), Status: models.PartnerStatusActive, CreatedAt: month(2024, time.January, 5)},
			{ID: 2, CompanyName: "Beta", CommissionRate: dec("20"), Status: models.PartnerStatusActive, CreatedAt: month(2025, time.April, 2)},
			{ID: 3, CompanyName: "Gamma", CommissionRate: dec("5"), Status: models.PartnerStatusActive, CreatedAt: month(2025, time.May, 20)},
		},
		records: map[uint][]revenue.ServiceRecord{
			1: {
				svc(1, "1000", month(2024, time.February, 1), nil),
				svc(2, "200", month(2025, time.March, 15), &cancelled),
			},
			2: {
				svc(3, "500", month(2025, time.April, 10), nil),
			},
			3: {
				svc(4, "500", month(2025, time.May, 25), nil),
			},
		},
		activity: map[uint]Activity{
			1: {Clients: 2, Proposals: 4, Approved: 1},
			2: {Clients: 1, Proposals: 0},
			3: {Clients: 1, Proposals: 2, Approved: 2},
		},
		clients: []time.Time{
			month(2024, time.February, 1),
			month(2025, time.April, 10),
			month(2025, time.April, 11),
			month(2025, time.May, 25),
		},
	}
}

func newComposer(db *fakeDB) *Composer {
	agg := revenue.NewAggregator(db, revenue.WithClock(func() time.Time { return now }))
	return NewComposer(db, agg, nil, 2)
}

func TestOverview_KPIsAndLeaderboard(t *testing.T) {
	ov, err := newComposer(fixture()).Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.KPIs.TotalPartners != 3 || ov.KPIs.TotalClients != 4 || ov.KPIs.TotalProposals != 6 {
		t.Fatalf("unexpected KPIs: %+v", ov.KPIs)
	}
	if !ov.KPIs.GlobalMRR.Equal(dec("2000")) {
		t.Fatalf("global MRR = %s, want 2000", ov.KPIs.GlobalMRR)
	}
	if !ov.KPIs.AverageRevenuePerPartner.Equal(dec("666.67")) {
		t.Fatalf("average = %s, want 666.67", ov.KPIs.AverageRevenuePerPartner)
	}

	// Beta and Gamma tie at 500; Beta has the lower ID and stays first.
	wantOrder := []uint{1, 2, 3}
	for i, id := range wantOrder {
		if ov.Leaderboard[i].PartnerID != id {
			t.Fatalf("leaderboard[%d] = partner %d, want %d", i, ov.Leaderboard[i].PartnerID, id)
		}
	}
	if !ov.Leaderboard[0].ConversionRate.Equal(dec("25")) || !ov.Leaderboard[1].ConversionRate.IsZero() {
		t.Fatalf("unexpected conversion rates: %s / %s", ov.Leaderboard[0].ConversionRate, ov.Leaderboard[1].ConversionRate)
	}
	if len(ov.TopServices) != 1 || ov.TopServices[0].Name != "SEO" {
		t.Fatalf("unexpected top services: %+v", ov.TopServices)
	}
}

func TestOverview_SeriesIsPerMonthSum(t *testing.T) {
	ov, err := newComposer(fixture()).Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if len(ov.MonthlySeries) != 12 {
		t.Fatalf("expected 12 months, got %d", len(ov.MonthlySeries))
	}
	byMonth := map[string]MonthPoint{}
	for _, p := range ov.MonthlySeries {
		byMonth[p.Month] = p
	}
	cases := []struct {
		month    string
		revenue  string
		partners int
		clients  int
	}{
		{"2024-07", "1000", 1, 1},
		{"2025-03", "1200", 1, 1},
		{"2025-04", "1700", 2, 3},
		{"2025-05", "2200", 3, 4}, // service 2 cancelled on May 3 still counts in May
		{"2025-06", "2000", 3, 4},
	}
	for _, c := range cases {
		p := byMonth[c.month]
		if !p.Revenue.Equal(dec(c.revenue)) || p.Partners != c.partners || p.Clients != c.clients {
			t.Errorf("%s: got revenue %s partners %d clients %d, want %s %d %d",
				c.month, p.Revenue, p.Partners, p.Clients, c.revenue, c.partners, c.clients)
		}
	}
	// May commission: 1200*10% + 500*20% + 500*5% = 120 + 100 + 25
	if got := byMonth["2025-05"].Commission; !got.Equal(dec("245")) {
		t.Errorf("May commission = %s, want 245", got)
	}
}

func TestOverview_GrowthUsesLastCompleteMonths(t *testing.T) {
	ov, err := newComposer(fixture()).Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	// May 2200 vs April 1700.
	if !ov.Growth.Revenue.Equal(dec("29.41")) {
		t.Errorf("revenue growth = %s, want 29.41", ov.Growth.Revenue)
	}
	// One partner opened in May, one in April.
	if !ov.Growth.Partners.IsZero() {
		t.Errorf("partner growth = %s, want 0", ov.Growth.Partners)
	}
	// One client in May, two in April.
	if !ov.Growth.Clients.Equal(dec("-50")) {
		t.Errorf("client growth = %s, want -50", ov.Growth.Clients)
	}
}

func TestOverview_FailsClosed(t *testing.T) {
	db := fixture()
	db.failOn = 2
	ov, err := newComposer(db).Overview(context.Background())
	if err == nil {
		t.Fatalf("expected error, got overview %+v", ov)
	}
	if ov != nil {
		t.Fatal("no partial overview may be returned")
	}
}

func TestOverview_NoPartners(t *testing.T) {
	ov, err := newComposer(&fakeDB{}).Overview(context.Background())
	if err != nil {
		t.Fatalf("Overview: %v", err)
	}
	if ov.KPIs.TotalPartners != 0 || !ov.KPIs.AverageRevenuePerPartner.IsZero() {
		t.Fatalf("unexpected KPIs: %+v", ov.KPIs)
	}
	if len(ov.Leaderboard) != 0 || len(ov.MonthlySeries) != 12 {
		t.Fatalf("unexpected shape: %d leaderboard rows, %d months", len(ov.Leaderboard), len(ov.MonthlySeries))
	}
	for _, p := range ov.MonthlySeries {
		if !p.Revenue.IsZero() {
			t.Fatalf("%s revenue = %s, want 0", p.Month, p.Revenue)
		}
	}
}
