// Package testsnapshot builds synthetic application snapshots and serves
// them the way the upstream does.
package testsnapshot

import (
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/taxonomy"
)

// Score ranges for generated exams.
const (
	examsPerRecord = 3
	examMin        = 40
	examRange      = 61
)

// applicantNamespace keeps generated applicant IDs stable across runs.
var applicantNamespace = uuid.MustParse("6f1c1f62-4c1e-4b8e-9d0f-3a6f0d1c5e21")

type weighted struct {
	label  string
	weight int
}

var (
	campaigns = []weighted{
		{taxonomy.LabelBachelor, 70},
		{taxonomy.LabelMagistracy, 15},
		{taxonomy.LabelSecVocEdu, 10},
		{taxonomy.LabelHighQualified, 5},
	}
	quotas = []weighted{
		{taxonomy.LabelBudgetQuota, 80},
		{taxonomy.LabelTargetQuota, 10},
		{taxonomy.LabelSpecialQuota, 5},
		{taxonomy.LabelSeparateQuota, 5},
	}
	financings = []weighted{
		{taxonomy.LabelBudget, 75},
		{taxonomy.LabelFullCost, 25},
	}
	channels = []weighted{
		{taxonomy.LabelSuperService, 45},
		{taxonomy.LabelWeb, 35},
		{taxonomy.LabelPersonal, 15},
		{taxonomy.LabelMail, 5},
	}
)

func pick(r *rand.Rand, items []weighted) string {
	total := 0
	for _, it := range items {
		total += it.weight
	}
	n := r.IntN(total)
	for _, it := range items {
		if n < it.weight {
			return it.label
		}
		n -= it.weight
	}
	return items[len(items)-1].label
}

// ApplicantID returns the stable ID of the i-th generated applicant.
func ApplicantID(seed uint64, i int) string {
	return uuid.NewSHA1(applicantNamespace, []byte(strconv.FormatUint(seed, 10)+"/"+strconv.Itoa(i))).String()
}

// Capacity returns the seats of a generated program per quota.
func Capacity(programIndex int) map[taxonomy.Quota]int {
	return map[taxonomy.Quota]int{
		taxonomy.BudgetQuota:   10 + (programIndex*7)%40,
		taxonomy.TargetQuota:   1 + programIndex%4,
		taxonomy.SpecialQuota:  1 + programIndex%3,
		taxonomy.SeparateQuota: 1 + programIndex%2,
	}
}

// Generate builds a snapshot from cfg. Every record carries valid labels and
// a full set of quota capacities.
func Generate(cfg Config) *model.Snapshot {
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	capturedAt := cfg.CapturedAt.UTC().Truncate(time.Second)

	maxPrograms := min(max(cfg.MaxPrograms, 1), len(cfg.Programs))
	records := make([]*model.ApplicationRecord, 0, cfg.Applicants*maxPrograms)
	if maxPrograms == 0 {
		return model.NewSnapshot(capturedAt, records)
	}

	for i := 0; i < cfg.Applicants; i++ {
		id := ApplicantID(cfg.Seed, i)
		campaign := pick(r, campaigns)
		delivery := pick(r, channels)
		region := ""
		if len(cfg.Regions) > 0 {
			region = cfg.Regions[r.IntN(len(cfg.Regions))]
		}
		firstSeen := capturedAt
		if cfg.Days > 0 {
			firstSeen = capturedAt.Add(-time.Duration(r.IntN(cfg.Days*24)) * time.Hour)
		}

		n := 1 + r.IntN(maxPrograms)
		for priority, idx := range r.Perm(len(cfg.Programs))[:n] {
			rec := &model.ApplicationRecord{
				ApplicantID:           id,
				Code:                  id,
				Program:               cfg.Programs[idx],
				Category:              pick(r, quotas),
				DocumentDelivery:      delivery,
				FinancingSource:       pick(r, financings),
				AdmissionCampaignType: campaign,
				SelectedPriority:      priority + 1,
				HasOriginal:           r.IntN(3) == 0,
				NoExams:               r.IntN(50) == 0,
				ExamsCount:            examsPerRecord,
				QuotaCapacity:         Capacity(idx),
				Region:                region,
				FirstSeenAt:           firstSeen,
			}
			for e := 0; e < examsPerRecord; e++ {
				rec.ExamScores[e] = float64(examMin + r.IntN(examRange))
				rec.SumScore += rec.ExamScores[e]
			}
			records = append(records, rec)
		}
	}
	return model.NewSnapshot(capturedAt, records)
}
