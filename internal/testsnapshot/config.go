package testsnapshot

import "time"

// Config describes a synthetic snapshot.
type Config struct {
	Applicants  int       // Number of distinct applicants
	MaxPrograms int       // Upper bound of programs per applicant
	Programs    []string  // Program names to draw from
	Regions     []string  // Free-text regions to draw from
	CapturedAt  time.Time // Snapshot capture time
	Days        int       // First-seen times spread over this many days before CapturedAt
	Seed        uint64    // Same seed, same snapshot
}

// DefaultConfig returns a small campaign over a handful of programs.
func DefaultConfig() Config {
	return Config{
		Applicants:  1000,
		MaxPrograms: 3,
		Programs: []string{
			"Математика",
			"Физика",
			"Химия",
			"Биология",
			"История",
			"Экономика",
			"Юриспруденция",
			"Программная инженерия",
		},
		Regions: []string{
			"Приморский край",
			"Хабаровский край",
			"Сахалинская область",
			"Амурская область",
			"Камчатский край",
			"Москва",
		},
		CapturedAt: time.Now().UTC().Truncate(time.Second),
		Days:       14,
		Seed:       1,
	}
}
