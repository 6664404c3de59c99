package aggregate

import "github.com/okian/admstats/internal/domain/taxonomy"

// CrossTab counts records by financing source, delivery channel and quota.
type CrossTab [len(taxonomy.Financings)][len(taxonomy.Channels)][len(taxonomy.Quotas)]int

// Add counts one record.
func (t *CrossTab) Add(c taxonomy.Classification) {
	t[c.Financing][c.Channel][c.Quota]++
}

// Get returns one cell.
func (t *CrossTab) Get(f taxonomy.Financing, ch taxonomy.Channel, q taxonomy.Quota) int {
	return t[f][ch][q]
}

// Sum returns the total over every cell.
func (t *CrossTab) Sum() int {
	n := 0
	for _, f := range taxonomy.Financings {
		for _, ch := range taxonomy.Channels {
			for _, q := range taxonomy.Quotas {
				n += t[f][ch][q]
			}
		}
	}
	return n
}

