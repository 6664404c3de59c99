package view

import "github.com/okian/admstats/internal/domain/programs"

// Series type labels shown on the dashboard.
const (
	SeriesApplications           = "Заявлений всего"
	SeriesWebApplications        = "Заявлений c priem.dvfu.ru"
	SeriesAgreements             = "Оригиналов"
	SeriesApplicants             = "Абитуриентов всего"
	SeriesWebApplicants          = "Абитуриентов c priem.dvfu.ru"
	SeriesSuperServiceApplicants = "Абитуриентов c Суперсервиса"
)

// MainPage is the dashboard response.
type MainPage struct {
	SmallCharts            SmallCharts               `json:"small_charts"`
	ApplicationsApproval   []SeriesPoint             `json:"applications_approval"`
	AverageEGE             []SchoolValue             `json:"average_ege"`
	Highballs              []SchoolValue             `json:"highballs"`
	ApplicationsByPrograms map[string][]ProgramEntry `json:"applications_by_programs"`
	ApplicationsByRegion   []RegionCount             `json:"applications_by_region"`
	Applicants             Applicants                `json:"applicants"`
	LastUpdate             string                    `json:"last_update"`
	ApplicantsByDay        []SeriesPoint             `json:"applicants_by_day"`

	// Diagnostics is not rendered.
	Diagnostics Diagnostics `json:"-"`
}

// Diagnostics carries non-fatal findings of an assembly.
type Diagnostics struct {
	Records          int
	Applicants       int
	UnmatchedRegions int
	MissingQuotas    int
	// MissingCapacity wraps programs.ErrMissingQuotaCapacity, or is nil.
	MissingCapacity error
}

// SmallCharts are the summary cards.
type SmallCharts struct {
	Applications ApplicationsCard `json:"applications"`
	Applicants   ApplicantsCard   `json:"applicants"`
	Average      AverageCard      `json:"average"`
	Approvals    ApprovalsCard    `json:"approvals"`
}

type ApplicationsCard struct {
	Data  []Point `json:"data"`
	Range string  `json:"range"`
	Total int     `json:"total"`
	Today int     `json:"today"`
}

type ApplicantsCard struct {
	Data         []Point `json:"data"`
	Range        string  `json:"range"`
	Total        int     `json:"total"`
	TodayOnline  int     `json:"today_online"`
	TodayOffline int     `json:"today_offline"`
}

type AverageCard struct {
	Data  []Point `json:"data"`
	Range string  `json:"range"`
	Total float64 `json:"total"`
}

type ApprovalsCard struct {
	Total int `json:"total"`
	Today int `json:"today"`
}

// SeriesPoint is one day of a typed daily series.
type SeriesPoint struct {
	Type  string `json:"type"`
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SchoolValue is a per-school figure. Per-school analytics are disabled, so
// these lists are always empty.
type SchoolValue struct {
	School string  `json:"school"`
	Value  float64 `json:"value"`
}

// ProgramEntry is one program row. Quotas is keyed by the upstream capacity
// field name, Ratings and Score by quota name; Score omits quotas without a
// passing score.
type ProgramEntry struct {
	Program string                     `json:"program"`
	Value   int                        `json:"value"`
	Quotas  map[string]int             `json:"quotas"`
	Ratings map[string]programs.Rating `json:"ratings"`
	Score   map[string]float64         `json:"score"`
}

// RegionCount is the number of applicants from one region.
type RegionCount struct {
	Region string `json:"region"`
	Value  int    `json:"value"`
}

type Applicants struct {
	Total        int `json:"total"`
	TodayOnline  int `json:"today_online"`
	TodayOffline int `json:"today_offline"`
}
