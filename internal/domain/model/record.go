// Package model contains the applicant snapshot passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/okian/admstats/internal/domain/taxonomy"
)

// ExamSlots is the number of entrance exam score slots per record.
const ExamSlots = 4

// ApplicationRecord is one applicant's submission to one program.
type ApplicationRecord struct {
	ApplicantID string
	Program     string
	Code        string

	// Raw classification labels, see package taxonomy.
	Category              string
	DocumentDelivery      string
	FinancingSource       string
	AdmissionCampaignType string

	SumScore         float64
	SelectedPriority int
	HasOriginal      bool // original certificate delivered
	NoExams          bool // admitted without entrance exams
	ExamScores       [ExamSlots]float64
	ExamsCount       int

	// QuotaCapacity holds the program's seats per quota. A quota without an
	// upstream value is absent.
	QuotaCapacity map[taxonomy.Quota]int

	Region string

	// FirstSeenAt is the first time this applicant+program pair was observed.
	// It is carried over between snapshots and never moves forward.
	FirstSeenAt time.Time
}

// Classify maps the record's raw labels onto the canonical enumerations.
func (r *ApplicationRecord) Classify() (taxonomy.Classification, error) {
	c, err := taxonomy.Classify(r.AdmissionCampaignType, r.Category, r.FinancingSource, r.DocumentDelivery)
	if err != nil {
		return taxonomy.Classification{}, fmt.Errorf("record %s/%s: %w", r.ApplicantID, r.Program, err)
	}
	return c, nil
}

// Capacity returns the seats for q and whether the upstream supplied them.
func (r *ApplicationRecord) Capacity(q taxonomy.Quota) (int, bool) {
	n, ok := r.QuotaCapacity[q]
	return n, ok
}

// Validate checks the record invariants.
func (r *ApplicationRecord) Validate() error {
	switch {
	case r.ApplicantID == "":
		return fmt.Errorf("%w: empty applicant id", ErrInvalidRecord)
	case r.Program == "":
		return fmt.Errorf("%w: applicant %s: empty program", ErrInvalidRecord, r.ApplicantID)
	case r.SumScore < 0:
		return fmt.Errorf("%w: %s/%s: negative sum score %v", ErrInvalidRecord, r.ApplicantID, r.Program, r.SumScore)
	case r.SelectedPriority < 1:
		return fmt.Errorf("%w: %s/%s: priority %d below 1", ErrInvalidRecord, r.ApplicantID, r.Program, r.SelectedPriority)
	}
	return nil
}
