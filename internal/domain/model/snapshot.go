package model

import (
	"sort"
	"sync"
	"time"
)

// Snapshot is a complete, immutable view of all applications at CapturedAt.
// It is produced whole and replaced whole; nothing mutates it after
// construction.
type Snapshot struct {
	CapturedAt time.Time
	// Records maps applicantID -> program -> record.
	Records map[string]map[string]*ApplicationRecord

	orderOnce sync.Once
	ordered   []*ApplicationRecord
}

// NewSnapshot builds a snapshot from records, keyed by applicant and program.
// A later record for the same pair replaces an earlier one.
func NewSnapshot(capturedAt time.Time, records []*ApplicationRecord) *Snapshot {
	s := &Snapshot{
		CapturedAt: capturedAt.UTC(),
		Records:    make(map[string]map[string]*ApplicationRecord),
	}
	for _, r := range records {
		byProgram, ok := s.Records[r.ApplicantID]
		if !ok {
			byProgram = make(map[string]*ApplicationRecord)
			s.Records[r.ApplicantID] = byProgram
		}
		byProgram[r.Program] = r
	}
	return s
}

// Version identifies the snapshot for caching. Snapshots captured in the same
// second share a version.
func (s *Snapshot) Version() int64 {
	return s.CapturedAt.Unix()
}

// Len returns the number of application records.
func (s *Snapshot) Len() int {
	n := 0
	for _, byProgram := range s.Records {
		n += len(byProgram)
	}
	return n
}

// Applicants returns the number of distinct applicants.
func (s *Snapshot) Applicants() int {
	return len(s.Records)
}

// Lookup returns the record for an applicant and program.
func (s *Snapshot) Lookup(applicantID, program string) (*ApplicationRecord, bool) {
	r, ok := s.Records[applicantID][program]
	return r, ok
}

// Ordered returns every record sorted by (applicantID, program). All passes
// over a snapshot use this order so "first seen" attribution is reproducible.
// The returned slice is shared and must not be modified.
func (s *Snapshot) Ordered() []*ApplicationRecord {
	s.orderOnce.Do(func() {
		out := make([]*ApplicationRecord, 0, s.Len())
		for _, byProgram := range s.Records {
			for _, r := range byProgram {
				out = append(out, r)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].ApplicantID != out[j].ApplicantID {
				return out[i].ApplicantID < out[j].ApplicantID
			}
			return out[i].Program < out[j].Program
		})
		s.ordered = out
	})
	return s.ordered
}

// Merge returns a new snapshot with fetched's records where every
// applicant+program pair already present in prev keeps prev's FirstSeenAt.
// New pairs keep their own FirstSeenAt (normally fetched.CapturedAt).
// Neither input is modified.
func Merge(prev, fetched *Snapshot) *Snapshot {
	if prev == nil {
		return fetched
	}
	records := make([]*ApplicationRecord, 0, fetched.Len())
	for _, r := range fetched.Ordered() {
		cp := *r
		if old, ok := prev.Lookup(r.ApplicantID, r.Program); ok && !old.FirstSeenAt.IsZero() {
			cp.FirstSeenAt = old.FirstSeenAt
		}
		records = append(records, &cp)
	}
	return NewSnapshot(fetched.CapturedAt, records)
}
