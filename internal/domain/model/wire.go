package model

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/okian/admstats/internal/domain/localtime"
	"github.com/okian/admstats/internal/domain/taxonomy"
)

// wireRecord mirrors one upstream application object.
type wireRecord struct {
	Code                  string  `json:"Code"`
	TrainingDirection     string  `json:"TrainingDirection"`
	Category              string  `json:"Category"`
	DocumentDelivery      string  `json:"DocumentDelivery"`
	FinancingSource       string  `json:"FinancingSource"`
	AdmissionCampaignType string  `json:"AdmissionCampaignType"`
	SumScore              float64 `json:"SumScore"`
	SelectedPriority      int     `json:"SelectedPriority"`
	AtestOrig             bool    `json:"AtestOrig"`
	NoExams               bool    `json:"NoExams"`
	Test1Score            float64 `json:"Test1Score"`
	Test2Score            float64 `json:"Test2Score"`
	Test3Score            float64 `json:"Test3Score"`
	Test4Score            float64 `json:"Test4Score"`
	ExamsCount            int     `json:"ExamsCount"`
	BudgetQuotaCount      *int    `json:"BudgetQuotaCount,omitempty"`
	TargetQuotaCount      *int    `json:"TargetQuotaCount,omitempty"`
	SpecialQuotaCount     *int    `json:"SpecialQuotaCount,omitempty"`
	SeparateQuotaCount    *int    `json:"SeparateQuotaCount,omitempty"`
	Region                string  `json:"Region"`
	FirstDownloadDate     string  `json:"firstDownloadDate,omitempty"`
}

type wireMeta struct {
	Date string `json:"date"`
}

// wireSnapshot is the persisted dump layout:
// {"meta":{"date":...},"data":{applicantID:{program:record}}}.
type wireSnapshot struct {
	Meta wireMeta                          `json:"meta"`
	Data map[string]map[string]*wireRecord `json:"data"`
}

func (w *wireRecord) capacityFields() map[taxonomy.Quota]**int {
	return map[taxonomy.Quota]**int{
		taxonomy.BudgetQuota:   &w.BudgetQuotaCount,
		taxonomy.TargetQuota:   &w.TargetQuotaCount,
		taxonomy.SpecialQuota:  &w.SpecialQuotaCount,
		taxonomy.SeparateQuota: &w.SeparateQuotaCount,
	}
}

func (w *wireRecord) toRecord(applicantID, program string, firstSeen time.Time) (*ApplicationRecord, error) {
	r := &ApplicationRecord{
		ApplicantID:           applicantID,
		Program:               program,
		Code:                  w.Code,
		Category:              w.Category,
		DocumentDelivery:      w.DocumentDelivery,
		FinancingSource:       w.FinancingSource,
		AdmissionCampaignType: w.AdmissionCampaignType,
		SumScore:              w.SumScore,
		SelectedPriority:      w.SelectedPriority,
		HasOriginal:           w.AtestOrig,
		NoExams:               w.NoExams,
		ExamScores:            [ExamSlots]float64{w.Test1Score, w.Test2Score, w.Test3Score, w.Test4Score},
		ExamsCount:            w.ExamsCount,
		QuotaCapacity:         make(map[taxonomy.Quota]int, len(taxonomy.Quotas)),
		Region:                w.Region,
		FirstSeenAt:           firstSeen,
	}
	for q, p := range w.capacityFields() {
		if *p != nil {
			r.QuotaCapacity[q] = **p
		}
	}
	if w.FirstDownloadDate != "" {
		ts, err := localtime.ParseUTC(w.FirstDownloadDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %s/%s firstDownloadDate: %w", ErrDecode, applicantID, program, err)
		}
		r.FirstSeenAt = ts
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func fromRecord(r *ApplicationRecord) *wireRecord {
	w := &wireRecord{
		Code:                  r.Code,
		TrainingDirection:     r.Program,
		Category:              r.Category,
		DocumentDelivery:      r.DocumentDelivery,
		FinancingSource:       r.FinancingSource,
		AdmissionCampaignType: r.AdmissionCampaignType,
		SumScore:              r.SumScore,
		SelectedPriority:      r.SelectedPriority,
		AtestOrig:             r.HasOriginal,
		NoExams:               r.NoExams,
		Test1Score:            r.ExamScores[0],
		Test2Score:            r.ExamScores[1],
		Test3Score:            r.ExamScores[2],
		Test4Score:            r.ExamScores[3],
		ExamsCount:            r.ExamsCount,
		Region:                r.Region,
	}
	if !r.FirstSeenAt.IsZero() {
		w.FirstDownloadDate = localtime.FormatUTC(r.FirstSeenAt)
	}
	for q, p := range w.capacityFields() {
		if n, ok := r.QuotaCapacity[q]; ok {
			*p = &n
		}
	}
	return w
}

// MarshalJSON encodes the snapshot in the dump layout.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	ws := wireSnapshot{
		Meta: wireMeta{Date: localtime.FormatUTC(s.CapturedAt)},
		Data: make(map[string]map[string]*wireRecord, len(s.Records)),
	}
	for applicantID, byProgram := range s.Records {
		out := make(map[string]*wireRecord, len(byProgram))
		for program, r := range byProgram {
			out[program] = fromRecord(r)
		}
		ws.Data[applicantID] = out
	}
	return json.Marshal(ws)
}

// Decode reads a snapshot in the dump layout. Records without a
// firstDownloadDate are stamped with the snapshot's capture time.
func Decode(r io.Reader) (*Snapshot, error) {
	var ws wireSnapshot
	if err := json.NewDecoder(r).Decode(&ws); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if ws.Meta.Date == "" {
		return nil, fmt.Errorf("%w: missing meta.date", ErrDecode)
	}
	capturedAt, err := localtime.ParseUTC(ws.Meta.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: meta.date: %w", ErrDecode, err)
	}

	records := make([]*ApplicationRecord, 0, len(ws.Data))
	for applicantID, byProgram := range ws.Data {
		for program, w := range byProgram {
			if w == nil {
				return nil, fmt.Errorf("%w: %s/%s: null record", ErrDecode, applicantID, program)
			}
			rec, err := w.toRecord(applicantID, program, capturedAt)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return NewSnapshot(capturedAt, records), nil
}

// Encode writes s in the dump layout.
func Encode(w io.Writer, s *Snapshot) error {
	b, err := s.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// DecodeUpstream reads the upstream flat JSON array of applications, keying
// records by Code and TrainingDirection. Every record is first seen at
// capturedAt; use Merge to carry earlier first-seen times over.
func DecodeUpstream(r io.Reader, capturedAt time.Time) (*Snapshot, error) {
	var list []*wireRecord
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: upstream list: %w", ErrDecode, err)
	}
	capturedAt = capturedAt.UTC().Truncate(time.Second)
	records := make([]*ApplicationRecord, 0, len(list))
	for i, w := range list {
		if w == nil {
			return nil, fmt.Errorf("%w: upstream item %d is null", ErrDecode, i)
		}
		w.FirstDownloadDate = ""
		rec, err := w.toRecord(w.Code, w.TrainingDirection, capturedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return NewSnapshot(capturedAt, records), nil
}

// EncodeUpstream writes s as the upstream flat JSON array, in canonical order.
// First-seen times are not part of the upstream format.
func EncodeUpstream(w io.Writer, s *Snapshot) error {
	list := make([]*wireRecord, 0, s.Len())
	for _, r := range s.Ordered() {
		wr := fromRecord(r)
		wr.FirstDownloadDate = ""
		list = append(list, wr)
	}
	if err := json.NewEncoder(w).Encode(list); err != nil {
		return fmt.Errorf("encode upstream list: %w", err)
	}
	return nil
}
