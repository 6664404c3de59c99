// Package aggregate computes the applicant-level counters of a snapshot in a
// single pass.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/admstats/internal/domain/dedupe"
	"github.com/okian/admstats/internal/domain/localtime"
	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/taxonomy"
)

// Result is the outcome of one aggregation pass. It is owned by the caller
// and shares nothing with the snapshot.
type Result struct {
	// Today is the local calendar day the pass was run for.
	Today localtime.Date

	TodayCounts CrossTab
	TotalCounts CrossTab

	ApplicationsToday int
	ApplicationsTotal int

	// Applicants by delivery: SuperService is online, Web is offline.
	OnlineToday  *dedupe.Set
	OfflineToday *dedupe.Set
	OnlineTotal  *dedupe.Set
	OfflineTotal *dedupe.Set

	AgreementsToday *dedupe.Set
	AgreementsTotal *dedupe.Set
	// AgreementsByDay counts distinct applicants with an original per day.
	AgreementsByDay map[localtime.Date]int

	ApplicationsByDay    map[localtime.Date]int
	WebApplicationsByDay map[localtime.Date]int

	// Applicants counted once, on the day and channel of their first record.
	ApplicantsWebByDay          map[localtime.Date]int
	ApplicantsSuperServiceByDay map[localtime.Date]int
	ApplicantsByDay             map[localtime.Date]int

	// AverageScore is the mean positive exam score over Budget-financed records.
	AverageScore float64
}

// ApplicantsToday returns the distinct applicants online or offline today.
func (r *Result) ApplicantsToday() int { return r.OnlineToday.UnionSize(r.OfflineToday) }

// ApplicantsTotal returns the distinct applicants online or offline overall.
func (r *Result) ApplicantsTotal() int { return r.OnlineTotal.UnionSize(r.OfflineTotal) }

func newResult(today localtime.Date) *Result {
	return &Result{
		Today:                       today,
		OnlineToday:                 dedupe.NewSet(),
		OfflineToday:                dedupe.NewSet(),
		OnlineTotal:                 dedupe.NewSet(),
		OfflineTotal:                dedupe.NewSet(),
		AgreementsToday:             dedupe.NewSet(),
		AgreementsTotal:             dedupe.NewSet(),
		AgreementsByDay:             make(map[localtime.Date]int),
		ApplicationsByDay:           make(map[localtime.Date]int),
		WebApplicationsByDay:        make(map[localtime.Date]int),
		ApplicantsWebByDay:          make(map[localtime.Date]int),
		ApplicantsSuperServiceByDay: make(map[localtime.Date]int),
		ApplicantsByDay:             make(map[localtime.Date]int),
	}
}

// Run aggregates snap as of now, bucketing days in loc. Records are visited
// in snapshot order (applicant, program). Any unclassifiable record aborts the
// pass and no partial result is returned.
func Run(snap *model.Snapshot, now time.Time, loc *time.Location) (*Result, error) {
	if loc == nil {
		loc = time.UTC
	}
	res := newResult(localtime.DateOf(now, loc))

	agreements := dedupe.NewKeyed[localtime.Date]()
	firstSeen := dedupe.NewSet()
	var (
		scoreSum float64
		scoreN   int
	)

	for _, rec := range snap.Ordered() {
		c, err := rec.Classify()
		if err != nil {
			return nil, fmt.Errorf("aggregate: %w", err)
		}
		id := rec.ApplicantID
		day := localtime.DateOf(rec.FirstSeenAt, loc)

		if day == res.Today {
			res.TodayCounts.Add(c)
			res.ApplicationsToday++
			switch c.Channel {
			case taxonomy.SuperService:
				res.OnlineToday.Add(id)
			case taxonomy.Web:
				res.OfflineToday.Add(id)
			}
			if rec.HasOriginal {
				res.AgreementsToday.Add(id)
			}
		}

		res.TotalCounts.Add(c)
		res.ApplicationsTotal++
		res.ApplicationsByDay[day]++
		switch c.Channel {
		case taxonomy.SuperService:
			res.OnlineTotal.Add(id)
		case taxonomy.Web:
			res.OfflineTotal.Add(id)
			res.WebApplicationsByDay[day]++
		}

		if rec.HasOriginal {
			res.AgreementsTotal.Add(id)
			agreements.SeenAndRecord(day, id)
		}

		// The applicant's first record decides the day and channel; a first
		// record delivered in person or by mail is not attributed.
		if !firstSeen.SeenAndRecord(id) {
			switch c.Channel {
			case taxonomy.Web:
				res.ApplicantsWebByDay[day]++
			case taxonomy.SuperService:
				res.ApplicantsSuperServiceByDay[day]++
			}
		}

		if c.Financing == taxonomy.Budget {
			for _, s := range rec.ExamScores {
				if s > 0 {
					scoreSum += s
					scoreN++
				}
			}
		}
	}

	res.AgreementsByDay = agreements.Sizes()
	for day, n := range res.ApplicantsWebByDay {
		res.ApplicantsByDay[day] += n
	}
	for day, n := range res.ApplicantsSuperServiceByDay {
		res.ApplicantsByDay[day] += n
	}
	if scoreN > 0 {
		res.AverageScore = scoreSum / float64(scoreN)
	}
	return res, nil
}

// DayCount is one point of a daily series.
type DayCount struct {
	Date  localtime.Date
	Count int
}

// Series returns m as points ordered by date.
func Series(m map[localtime.Date]int) []DayCount {
	out := make([]DayCount, 0, len(m))
	for d, n := range m {
		out = append(out, DayCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
