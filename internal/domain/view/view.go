// Package view shapes aggregation and program analytics into the dashboard
// response.
package view

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/okian/admstats/internal/domain/aggregate"
	"github.com/okian/admstats/internal/domain/localtime"
	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/programs"
	"github.com/okian/admstats/internal/domain/region"
	"github.com/okian/admstats/internal/domain/taxonomy"
)

// ErrNoSnapshot is returned when Assemble is called without a snapshot.
var ErrNoSnapshot = errors.New("no snapshot")

// Input is everything one assembly needs.
type Input struct {
	Snapshot *model.Snapshot
	Now      time.Time
	Location *time.Location
	Resolver *region.Resolver
	History  History
}

// Assemble runs the aggregation passes over in.Snapshot and builds the page.
// The result shares nothing with the snapshot.
func Assemble(in Input) (*MainPage, error) {
	if in.Snapshot == nil {
		return nil, ErrNoSnapshot
	}
	if in.Resolver == nil {
		return nil, region.ErrTableUnavailable
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	agg, err := aggregate.Run(in.Snapshot, in.Now, loc)
	if err != nil {
		return nil, err
	}
	an, err := programs.Analyze(in.Snapshot)
	if err != nil {
		return nil, err
	}
	regions, unmatched, err := byRegion(in.Snapshot, in.Resolver)
	if err != nil {
		return nil, err
	}

	year := in.History.CurrentYear
	if year == 0 {
		year = in.Now.In(loc).Year()
	}

	page := &MainPage{
		SmallCharts:            smallCharts(agg, in.History, year),
		ApplicationsApproval:   approvalSeries(agg),
		AverageEGE:             []SchoolValue{},
		Highballs:              []SchoolValue{},
		ApplicationsByPrograms: byPrograms(an),
		ApplicationsByRegion:   regions,
		Applicants: Applicants{
			Total:        agg.ApplicantsTotal(),
			TodayOnline:  agg.OnlineToday.Size(),
			TodayOffline: agg.OfflineToday.Size(),
		},
		LastUpdate:      in.Snapshot.CapturedAt.In(loc).Format(localtime.WireLayout),
		ApplicantsByDay: applicantSeries(agg),
		Diagnostics: Diagnostics{
			Records:          in.Snapshot.Len(),
			Applicants:       in.Snapshot.Applicants(),
			UnmatchedRegions: unmatched,
			MissingQuotas:    missingQuotas(an),
			MissingCapacity:  an.Missing(),
		},
	}
	return page, nil
}

func smallCharts(agg *aggregate.Result, h History, year int) SmallCharts {
	var sc SmallCharts

	sc.Applications.Data, sc.Applications.Range = chart(h.Applications, year, float64(agg.ApplicationsTotal))
	sc.Applications.Total = agg.ApplicationsTotal
	sc.Applications.Today = agg.ApplicationsToday

	sc.Applicants.Data, sc.Applicants.Range = chart(h.Applicants, year, float64(agg.ApplicantsTotal()))
	sc.Applicants.Total = agg.ApplicantsTotal()
	sc.Applicants.TodayOnline = agg.OnlineToday.Size()
	sc.Applicants.TodayOffline = agg.OfflineToday.Size()

	sc.Average.Data, sc.Average.Range = chart(h.Average, year, agg.AverageScore)
	sc.Average.Total = agg.AverageScore

	sc.Approvals.Total = agg.AgreementsTotal.Size()
	sc.Approvals.Today = agg.AgreementsToday.Size()
	return sc
}

func appendSeries(dst []SeriesPoint, typ string, m map[localtime.Date]int) []SeriesPoint {
	for _, dc := range aggregate.Series(m) {
		dst = append(dst, SeriesPoint{Type: typ, Date: dc.Date.String(), Count: dc.Count})
	}
	return dst
}

func approvalSeries(agg *aggregate.Result) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(agg.ApplicationsByDay)+len(agg.WebApplicationsByDay)+len(agg.AgreementsByDay))
	out = appendSeries(out, SeriesApplications, agg.ApplicationsByDay)
	out = appendSeries(out, SeriesWebApplications, agg.WebApplicationsByDay)
	out = appendSeries(out, SeriesAgreements, agg.AgreementsByDay)
	return out
}

func applicantSeries(agg *aggregate.Result) []SeriesPoint {
	out := make([]SeriesPoint, 0, len(agg.ApplicantsByDay)+len(agg.ApplicantsWebByDay)+len(agg.ApplicantsSuperServiceByDay))
	out = appendSeries(out, SeriesApplicants, agg.ApplicantsByDay)
	out = appendSeries(out, SeriesWebApplicants, agg.ApplicantsWebByDay)
	out = appendSeries(out, SeriesSuperServiceApplicants, agg.ApplicantsSuperServiceByDay)
	return out
}

func byPrograms(an *programs.Analytics) map[string][]ProgramEntry {
	groups := an.ByCampaign()
	out := make(map[string][]ProgramEntry, len(groups))
	for ct, group := range groups {
		entries := make([]ProgramEntry, 0, len(group))
		for _, p := range group {
			entries = append(entries, programEntry(p))
		}
		out[ct.String()] = entries
	}
	return out
}

func programEntry(p *programs.Program) ProgramEntry {
	e := ProgramEntry{
		Program: p.Name,
		Value:   p.Applications,
		Quotas:  make(map[string]int, len(p.Capacity)),
		Ratings: make(map[string]programs.Rating, len(taxonomy.Quotas)),
		Score:   make(map[string]float64, len(p.PassingScores)),
	}
	for _, q := range taxonomy.Quotas {
		if n, ok := p.Capacity[q]; ok {
			e.Quotas[q.CapacityKey()] = n
		}
		e.Ratings[q.String()] = p.Ratings[q]
		if s, ok := p.PassingScores[q]; ok {
			e.Score[q.String()] = s
		}
	}
	return e
}

// byRegion counts Bachelor applicants per region code using each applicant's
// first record in canonical order. It also returns how many such applicants
// had no matching region.
func byRegion(snap *model.Snapshot, r *region.Resolver) ([]RegionCount, int, error) {
	counts := make(map[string]int)
	unmatched := 0
	prev := ""
	for i, rec := range snap.Ordered() {
		if i > 0 && rec.ApplicantID == prev {
			continue
		}
		prev = rec.ApplicantID

		campaign, err := taxonomy.ParseCampaignType(rec.AdmissionCampaignType)
		if err != nil {
			return nil, 0, fmt.Errorf("view: record %s/%s: %w", rec.ApplicantID, rec.Program, err)
		}
		if campaign != taxonomy.Bachelor {
			continue
		}
		code, ok := r.Resolve(rec.Region)
		if !ok {
			unmatched++
			continue
		}
		counts[code]++
	}

	out := make([]RegionCount, 0, len(counts))
	for code, n := range counts {
		out = append(out, RegionCount{Region: code, Value: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Region < out[j].Region
	})
	return out, unmatched, nil
}

func missingQuotas(an *programs.Analytics) int {
	n := 0
	for _, p := range an.Programs {
		n += len(p.Missing)
	}
	return n
}
