// Package platform builds the operator dashboard: KPIs, the partner
// leaderboard, the platform-wide monthly series and growth rates.
package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/diewo77/go-partners/internal/analytics"
	"github.com/diewo77/go-partners/internal/metrics"
	"github.com/diewo77/go-partners/internal/models"
	"github.com/diewo77/go-partners/internal/money"
	"github.com/diewo77/go-partners/internal/revenue"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TopServicesSize is how many service lines the overview lists.
const TopServicesSize = 5

// Activity is the proposal and client volume of one partner.
type Activity struct {
	Clients   int
	Proposals int
	Approved  int
}

type Totals struct {
	Clients   int64
	Proposals int64
}

type TopService struct {
	Name       string          `json:"name"`
	AverageFee decimal.Decimal `json:"average_fee"`
	Count      int             `json:"count"`
}

// Source is the read side the composer needs besides the revenue aggregator.
type Source interface {
	ActivePartners(ctx context.Context) ([]models.Partner, error)
	PartnerActivity(ctx context.Context, partnerID uint) (Activity, error)
	Totals(ctx context.Context) (Totals, error)
	PartnerCreationTimes(ctx context.Context) ([]time.Time, error)
	ClientCreationTimes(ctx context.Context) ([]time.Time, error)
	TopServices(ctx context.Context, at time.Time, limit int) ([]TopService, error)
}

type KPIs struct {
	TotalPartners            int             `json:"total_partners"`
	TotalClients             int64           `json:"total_clients"`
	GlobalMRR                decimal.Decimal `json:"global_mrr"`
	TotalProposals           int64           `json:"total_proposals"`
	AverageRevenuePerPartner decimal.Decimal `json:"average_revenue_per_partner"`
}

// MonthPoint is one month of the platform series. Partners and Clients are
// the number of accounts created before the month ended.
type MonthPoint struct {
	Month              string          `json:"month"`
	Revenue            decimal.Decimal `json:"revenue"`
	Commission         decimal.Decimal `json:"commission"`
	ActiveServiceCount int             `json:"active_service_count"`
	Partners           int             `json:"partners"`
	Clients            int             `json:"clients"`
}

type Growth struct {
	Partners decimal.Decimal `json:"partners"`
	Clients  decimal.Decimal `json:"clients"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Overview struct {
	GeneratedAt   time.Time                    `json:"generated_at"`
	KPIs          KPIs                         `json:"kpis"`
	Leaderboard   []analytics.LeaderboardEntry `json:"leaderboard"`
	MonthlySeries []MonthPoint                 `json:"monthly_series"`
	Growth        Growth                       `json:"growth"`
	TopServices   []TopService                 `json:"top_services"`
}

type Composer struct {
	src         Source
	agg         *revenue.Aggregator
	log         *zap.Logger
	concurrency int
}

// NewComposer wires the composer. concurrency bounds how many partners are
// evaluated at once; values below 1 mean 8.
func NewComposer(src Source, agg *revenue.Aggregator, log *zap.Logger, concurrency int) *Composer {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 8
	}
	return &Composer{src: src, agg: agg, log: log, concurrency: concurrency}
}

type partnerResult struct {
	snapshot *revenue.Snapshot
	activity Activity
}

// Overview evaluates every active partner at the same instant and assembles
// the dashboard. If any part fails the whole call fails; a partial overview
// would under-report platform totals.
func (c *Composer) Overview(ctx context.Context) (*Overview, error) {
	started := time.Now()
	defer func() { metrics.ObserveOverview(time.Since(started)) }()

	at := c.agg.Now()
	partners, err := c.src.ActivePartners(ctx)
	if err != nil {
		return nil, fmt.Errorf("platform overview: %w", err)
	}

	results := make([]partnerResult, len(partners))
	var (
		totals       Totals
		partnerTimes []time.Time
		clientTimes  []time.Time
		top          []TopService
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range partners {
		p := &partners[i]
		g.Go(func() error {
			snap, err := c.agg.SnapshotAt(gctx, p, at)
			if err != nil {
				return fmt.Errorf("partner %d revenue: %w", p.ID, err)
			}
			act, err := c.src.PartnerActivity(gctx, p.ID)
			if err != nil {
				return fmt.Errorf("partner %d activity: %w", p.ID, err)
			}
			results[i] = partnerResult{snapshot: snap, activity: act}
			return nil
		})
	}
	g.Go(func() (err error) {
		totals, err = c.src.Totals(gctx)
		return err
	})
	g.Go(func() (err error) {
		partnerTimes, err = c.src.PartnerCreationTimes(gctx)
		return err
	})
	g.Go(func() (err error) {
		clientTimes, err = c.src.ClientCreationTimes(gctx)
		return err
	})
	g.Go(func() (err error) {
		top, err = c.src.TopServices(gctx, at, TopServicesSize)
		return err
	})
	if err := g.Wait(); err != nil {
		c.log.Error("platform overview failed", zap.Error(err), zap.Int("partners", len(partners)))
		return nil, fmt.Errorf("platform overview: %w", err)
	}

	months := revenue.TrailingMonths(at, revenue.HistoryMonths, c.agg.Location())
	series := buildSeries(months, results, partnerTimes, clientTimes)

	perf := make([]analytics.PartnerPerformance, 0, len(partners))
	globalMRR := decimal.Zero
	for i, r := range results {
		globalMRR = globalMRR.Add(r.snapshot.Revenue.MRR)
		perf = append(perf, analytics.PartnerPerformance{
			PartnerID:             partners[i].ID,
			PartnerName:           partners[i].CompanyName,
			ClientCount:           r.activity.Clients,
			TotalRevenue:          r.snapshot.Revenue.MRR,
			ProposalCount:         r.activity.Proposals,
			ApprovedProposalCount: r.activity.Approved,
		})
	}

	if top == nil {
		top = []TopService{}
	}
	ov := &Overview{
		GeneratedAt: at,
		KPIs: KPIs{
			TotalPartners:            len(partners),
			TotalClients:             totals.Clients,
			GlobalMRR:                money.Round2(globalMRR),
			TotalProposals:           totals.Proposals,
			AverageRevenuePerPartner: money.Div(globalMRR, decimal.NewFromInt(int64(len(partners)))),
		},
		Leaderboard:   analytics.Leaderboard(perf, analytics.LeaderboardSize),
		MonthlySeries: series,
		Growth:        growthOf(months, series, partnerTimes, clientTimes),
		TopServices:   top,
	}
	c.log.Debug("platform overview built",
		zap.Int("partners", len(partners)),
		zap.Duration("took", time.Since(started)))
	return ov, nil
}

// buildSeries sums every partner's history month by month.
func buildSeries(months []revenue.Period, results []partnerResult, partnerTimes, clientTimes []time.Time) []MonthPoint {
	series := make([]MonthPoint, len(months))
	for i, m := range months {
		pt := MonthPoint{
			Month:      m.Label(),
			Revenue:    decimal.Zero,
			Commission: decimal.Zero,
			Partners:   countBefore(partnerTimes, m.End),
			Clients:    countBefore(clientTimes, m.End),
		}
		for _, r := range results {
			h := r.snapshot.History[i]
			pt.Revenue = pt.Revenue.Add(h.Revenue)
			pt.Commission = pt.Commission.Add(h.Commission)
			pt.ActiveServiceCount += h.ActiveServiceCount
		}
		series[i] = pt
	}
	return series
}

// growthOf compares the last two complete months, i.e. the two months before
// the current one. Partner and client growth compare accounts opened in each
// month; revenue growth compares the monthly revenue.
func growthOf(months []revenue.Period, series []MonthPoint, partnerTimes, clientTimes []time.Time) Growth {
	n := len(months)
	if n < 3 {
		return Growth{Partners: decimal.Zero, Clients: decimal.Zero, Revenue: decimal.Zero}
	}
	last, prior := months[n-2], months[n-3]
	return Growth{
		Partners: analytics.GrowthCount(countIn(partnerTimes, last), countIn(partnerTimes, prior)),
		Clients:  analytics.GrowthCount(countIn(clientTimes, last), countIn(clientTimes, prior)),
		Revenue:  analytics.Growth(series[n-2].Revenue, series[n-3].Revenue),
	}
}

func countBefore(times []time.Time, end time.Time) int {
	n := 0
	for _, t := range times {
		if t.Before(end) {
			n++
		}
	}
	return n
}

func countIn(times []time.Time, p revenue.Period) int {
	n := 0
	for _, t := range times {
		if p.Contains(t) {
			n++
		}
	}
	return n
}
