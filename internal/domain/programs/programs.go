// Package programs computes per-program counts, priority ratings and
// passing scores.
package programs

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/taxonomy"
)

const numQuotas = len(taxonomy.Quotas)

// Rating tallies first-priority applications with and without an original.
type Rating struct {
	WithoutOriginal int
	WithOriginal    int
}

// MarshalJSON renders the rating as [without, with].
func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.WithoutOriginal, r.WithOriginal})
}

// Program holds the analytics of one training direction.
type Program struct {
	Name     string
	Campaign taxonomy.CampaignType

	// Applications counts every record for the program.
	Applications int

	// Capacity is taken from the first record seen for the program.
	Capacity map[taxonomy.Quota]int

	Ratings        [numQuotas]Rating
	NoExamAdmitted [numQuotas]int

	// PassingScores only holds quotas with a defined passing score.
	PassingScores map[taxonomy.Quota]float64

	// Missing lists ranked quotas without capacity, in quota order.
	Missing []taxonomy.Quota

	pools [numQuotas][]float64
}

// MissingCapacity returns an error wrapping ErrMissingQuotaCapacity for each
// quota in Missing, or nil.
func (p *Program) MissingCapacity() error {
	errs := make([]error, 0, len(p.Missing))
	for _, q := range p.Missing {
		errs = append(errs, fmt.Errorf("%w: program %q quota %s", ErrMissingQuotaCapacity, p.Name, q))
	}
	return errors.Join(errs...)
}

// Analytics is the outcome of one pass, keyed by program name.
type Analytics struct {
	Programs map[string]*Program
}

// Analyze walks snap in canonical order. Any unclassifiable record aborts
// the pass.
func Analyze(snap *model.Snapshot) (*Analytics, error) {
	a := &Analytics{Programs: make(map[string]*Program)}

	for _, rec := range snap.Ordered() {
		c, err := rec.Classify()
		if err != nil {
			return nil, fmt.Errorf("programs: %w", err)
		}

		p, ok := a.Programs[rec.Program]
		if !ok {
			p = &Program{
				Name:          rec.Program,
				Campaign:      c.Campaign,
				Capacity:      make(map[taxonomy.Quota]int, len(rec.QuotaCapacity)),
				PassingScores: make(map[taxonomy.Quota]float64),
			}
			for q, n := range rec.QuotaCapacity {
				p.Capacity[q] = n
			}
			a.Programs[rec.Program] = p
		}
		p.Applications++

		if rec.SelectedPriority == 1 {
			if rec.HasOriginal {
				p.Ratings[c.Quota].WithOriginal++
			} else {
				p.Ratings[c.Quota].WithoutOriginal++
			}
		}

		switch {
		case rec.HasOriginal && rec.NoExams:
			p.NoExamAdmitted[c.Quota]++
		case rec.HasOriginal && rec.SelectedPriority == 1:
			p.pools[c.Quota] = append(p.pools[c.Quota], rec.SumScore)
		}
	}

	for _, p := range a.Programs {
		p.rank()
	}
	return a, nil
}

func (p *Program) rank() {
	for _, q := range taxonomy.Quotas {
		pool := p.pools[q]
		if len(pool) == 0 {
			continue
		}
		capacity, ok := p.Capacity[q]
		if !ok {
			p.Missing = append(p.Missing, q)
			continue
		}
		sort.SliceStable(pool, func(i, j int) bool { return pool[i] > pool[j] })
		if score, ok := PassingScore(pool, capacity, p.NoExamAdmitted[q]); ok {
			p.PassingScores[q] = score
		}
	}
	p.pools = [numQuotas][]float64{}
}

// PassingScore returns the lowest score admitted under capacity once noExam
// seats are taken. pool must be sorted in descending order. There is no
// passing score when the pool is empty or no-exam admits fill the quota.
func PassingScore(pool []float64, capacity, noExam int) (float64, bool) {
	cutoff := capacity - noExam
	if len(pool) == 0 || cutoff <= 0 {
		return 0, false
	}
	return pool[min(cutoff, len(pool))-1], true
}

// Names returns program names in ascending order.
func (a *Analytics) Names() []string {
	out := make([]string, 0, len(a.Programs))
	for name := range a.Programs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ByCampaign groups programs by campaign type, every campaign present, each
// group ordered by application count descending then name.
func (a *Analytics) ByCampaign() map[taxonomy.CampaignType][]*Program {
	out := make(map[taxonomy.CampaignType][]*Program, len(taxonomy.CampaignTypes))
	for _, ct := range taxonomy.CampaignTypes {
		out[ct] = []*Program{}
	}
	for _, p := range a.Programs {
		out[p.Campaign] = append(out[p.Campaign], p)
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Applications != group[j].Applications {
				return group[i].Applications > group[j].Applications
			}
			return group[i].Name < group[j].Name
		})
	}
	return out
}

// Missing returns the missing-capacity errors of every program, or nil.
func (a *Analytics) Missing() error {
	var errs []error
	for _, name := range a.Names() {
		if err := a.Programs[name].MissingCapacity(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
