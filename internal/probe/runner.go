package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/leadscore/internal/domain/lead"
	"github.com/okian/leadscore/pkg/logger"
	"github.com/okian/leadscore/pkg/worker"
)

// ErrViolation is returned by Run when at least one case failed.
var ErrViolation = errors.New("probe found violations")

// Run checks health, fetches the unfiltered listing, derives filter cases
// from its first complete lead and checks each of them concurrently. The
// CSV export of the last case is compared with its listing.
func Run(ctx context.Context, cfg Config) (Report, error) {
	log := logger.Get().Named("probe")
	start := time.Now()
	c := newClient(cfg.BaseURL, cfg.Timeout)

	if err := c.health(ctx, cfg.Wait); err != nil {
		return Report{}, fmt.Errorf("health check: %w", err)
	}

	all, err := c.leads(ctx, Case{})
	if err != nil {
		return Report{}, fmt.Errorf("baseline listing: %w", err)
	}
	report := Report{Leads: len(all)}
	log.Info(ctx, "baseline fetched", logger.String("baseURL", cfg.BaseURL), logger.Int("leads", len(all)))

	cases := buildCases(all, cfg.MinScore)
	results := make([]Result, len(cases))

	jobs := make([]worker.Job, len(cases))
	for i, tc := range cases {
		jobs[i] = func(ctx context.Context) error {
			rows, err := c.leads(ctx, tc)
			if err == nil {
				err = verify(tc, rows, all)
			}
			results[i] = Result{Case: tc, Rows: len(rows), Error: err}
			return nil
		}
	}
	if err := worker.NewPool(cfg.Workers, worker.WithName("probe")).Run(ctx, jobs); err != nil {
		return Report{}, err
	}

	report.Cases = len(results)
	for _, r := range results {
		if r.Error != nil {
			report.Failed++
			log.Warn(ctx, "case failed", logger.String("case", r.Case.Name), logger.Error(r.Error))
		}
	}

	tc := cases[len(cases)-1]
	listing, lerr := c.leads(ctx, tc)
	export, eerr := c.export(ctx, tc)
	err = errors.Join(lerr, eerr)
	if err == nil {
		err = sameRows(listing, export)
	}
	report.Cases++
	report.Exported = len(export)
	results = append(results, Result{Case: Case{Name: "export " + tc.Name}, Rows: len(export), Error: err})
	if err != nil {
		report.Failed++
		log.Warn(ctx, "export check failed", logger.String("case", tc.Name), logger.Error(err))
	}

	report.Results = results
	report.Duration = time.Since(start)
	log.Info(ctx, "probe finished",
		logger.Int("cases", report.Cases),
		logger.Int("failed", report.Failed),
		logger.Duration("duration", report.Duration),
	)
	if report.Failed > 0 {
		return report, fmt.Errorf("%w: %d of %d cases", ErrViolation, report.Failed, report.Cases)
	}
	return report, nil
}

// buildCases derives filter cases from the first lead that has every
// categorical value. Substrings are taken in a different case to exercise
// case-insensitive matching.
func buildCases(all lead.Scored, minScore float64) []Case {
	cases := []Case{
		{Name: "sort desc", Sort: "desc"},
		{Name: "sort asc", Sort: "asc"},
		{Name: "min_score", MinScore: minScore},
		{Name: "min_score above every score", MinScore: 1.01},
	}
	for _, r := range all {
		if r.Industry == "" || r.Role == "" || r.Location == "" {
			continue
		}
		cases = append([]Case{
			{Name: "all", Sort: string(lead.SortNone)},
			{Name: "industry", Industry: fragment(r.Industry)},
		}, cases...)
		cases = append(cases,
			Case{Name: "role", Role: fragment(r.Role)},
			Case{Name: "location", Location: fragment(r.Location)},
			Case{Name: "combined", Industry: r.Industry, Role: r.Role, Location: r.Location, MinScore: minScore, Sort: "desc"},
		)
		break
	}
	return cases
}

// fragment returns the upper-cased first three runes of s.
func fragment(s string) string {
	r := []rune(s)
	if len(r) > 3 {
		r = r[:3]
	}
	return strings.ToUpper(string(r))
}
