package fetch

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/domain/taxonomy"
	. "github.com/smartystreets/goconvey/convey"
)

const upstreamJSON = `[
 {"Code":"100","TrainingDirection":"Физика","Category":"На общих основаниях","DocumentDelivery":"Веб",
  "FinancingSource":"Бюджетная основа","AdmissionCampaignType":"Прием на обучение на бакалавриат/специалитет",
  "SumScore":250,"SelectedPriority":1,"AtestOrig":true,"NoExams":false,"Test1Score":80,"Test2Score":85,
  "Test3Score":85,"Test4Score":0,"ExamsCount":3,"BudgetQuotaCount":25,"Region":"Приморский край"},
 {"Code":"100","TrainingDirection":"Химия","Category":"Целевой прием","DocumentDelivery":"Веб",
  "FinancingSource":"Бюджетная основа","AdmissionCampaignType":"Прием на обучение на бакалавриат/специалитет",
  "SumScore":240,"SelectedPriority":2,"AtestOrig":false,"NoExams":false,"ExamsCount":3,"Region":"Приморский край"}
]`

func soapResponse(payload string) string {
	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(payload))
	return `<?xml version="1.0" encoding="utf-8"?>` +
		`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"><soap:Body>` +
		`<m:GetStudentsListResponse xmlns:m="http://www.DVFU_Univer.org"><m:return>` +
		escaped.String() +
		`</m:return></m:GetStudentsListResponse></soap:Body></soap:Envelope>`
}

func TestFetch(t *testing.T) {
	Convey("Given an upstream SOAP service", t, func() {
		var (
			gotMethod, gotType, gotBody string
			gotUser, gotPass           string
			gotAuth                    bool
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotType = r.Header.Get("Content-Type")
			gotUser, gotPass, gotAuth = r.BasicAuth()
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			_, _ = io.WriteString(w, soapResponse(upstreamJSON))
		}))
		defer srv.Close()

		capturedAt := time.Date(2024, 7, 2, 3, 4, 5, 600, time.UTC)
		c := New(srv.URL,
			WithCredentials("user", "secret"),
			WithTimeout(5*time.Second),
			WithClock(func() time.Time { return capturedAt }),
		)

		snap, err := c.Fetch(context.Background())

		Convey("Then the request is a basic-auth SOAP call", func() {
			So(err, ShouldBeNil)
			So(gotMethod, ShouldEqual, http.MethodPost)
			So(gotType, ShouldEqual, "application/xml")
			So(gotAuth, ShouldBeTrue)
			So(gotUser, ShouldEqual, "user")
			So(gotPass, ShouldEqual, "secret")
			So(gotBody, ShouldEqual, Envelope)
		})

		Convey("Then the payload becomes a snapshot keyed by applicant and program", func() {
			So(err, ShouldBeNil)
			So(snap.Len(), ShouldEqual, 2)
			So(snap.Applicants(), ShouldEqual, 1)
			So(snap.CapturedAt.Equal(capturedAt.Truncate(time.Second)), ShouldBeTrue)

			rec, ok := snap.Lookup("100", "Физика")
			So(ok, ShouldBeTrue)
			So(rec.HasOriginal, ShouldBeTrue)
			So(rec.QuotaCapacity, ShouldResemble, map[taxonomy.Quota]int{taxonomy.BudgetQuota: 25})
			So(rec.FirstSeenAt.Equal(snap.CapturedAt), ShouldBeTrue)

			other, ok := snap.Lookup("100", "Химия")
			So(ok, ShouldBeTrue)
			So(other.QuotaCapacity, ShouldBeEmpty)
		})
	})
}

func TestFetchErrors(t *testing.T) {
	serve := func(status int, body string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}))
	}

	Convey("Fetch wraps every failure in ErrUpstream", t, func() {
		cases := []struct {
			name   string
			status int
			body   string
		}{
			{"server error", http.StatusInternalServerError, "oops"},
			{"malformed xml", http.StatusOK, "<soap:Envelope"},
			{"missing payload", http.StatusOK, `<Envelope><Body></Body></Envelope>`},
			{"empty payload", http.StatusOK, soapResponse("  ")},
			{"payload not json", http.StatusOK, soapResponse("not json")},
		}
		for _, tc := range cases {
			Convey(tc.name, func() {
				srv := serve(tc.status, tc.body)
				defer srv.Close()

				_, err := New(srv.URL).Fetch(context.Background())
				So(err, ShouldNotBeNil)
				So(errors.Is(err, ErrUpstream), ShouldBeTrue)
			})
		}

		Convey("invalid records", func() {
			srv := serve(http.StatusOK, soapResponse(`[{"Code":"1","TrainingDirection":"Физика","SelectedPriority":0}]`))
			defer srv.Close()

			_, err := New(srv.URL).Fetch(context.Background())
			So(errors.Is(err, ErrUpstream), ShouldBeTrue)
			So(errors.Is(err, model.ErrInvalidRecord), ShouldBeTrue)
		})

		Convey("oversized responses", func() {
			srv := serve(http.StatusOK, soapResponse(upstreamJSON))
			defer srv.Close()

			_, err := New(srv.URL, WithMaxResponseBytes(64)).Fetch(context.Background())
			So(errors.Is(err, ErrUpstream), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "exceeds")
		})

		Convey("timeouts", func() {
			slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}))
			defer slow.Close()

			_, err := New(slow.URL, WithTimeout(50*time.Millisecond)).Fetch(context.Background())
			So(errors.Is(err, ErrUpstream), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}

func TestExtractPayload(t *testing.T) {
	Convey("extractPayload reads the third-level element text", t, func() {
		got, err := extractPayload([]byte(soapResponse(`[]`)))
		So(err, ShouldBeNil)
		So(got, ShouldEqual, "[]")
	})
}
