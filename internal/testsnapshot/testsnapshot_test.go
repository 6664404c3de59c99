package testsnapshot_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/admstats/internal/adapters/fetch"
	"github.com/okian/admstats/internal/domain/model"
	"github.com/okian/admstats/internal/testsnapshot"
	. "github.com/smartystreets/goconvey/convey"
)

func smallConfig() testsnapshot.Config {
	cfg := testsnapshot.DefaultConfig()
	cfg.Applicants = 50
	cfg.CapturedAt = time.Date(2024, 7, 1, 3, 0, 0, 0, time.UTC)
	cfg.Seed = 42
	return cfg
}

func TestGenerate(t *testing.T) {
	Convey("Given a generator config", t, func() {
		cfg := smallConfig()
		snap := testsnapshot.Generate(cfg)

		Convey("Then every applicant is present with bounded programs", func() {
			So(snap.Applicants(), ShouldEqual, cfg.Applicants)
			So(snap.Len(), ShouldBeBetweenOrEqual, cfg.Applicants, cfg.Applicants*cfg.MaxPrograms)
			So(snap.CapturedAt.Equal(cfg.CapturedAt), ShouldBeTrue)
		})

		Convey("Then every record is valid and classifiable", func() {
			for _, r := range snap.Ordered() {
				So(r.Validate(), ShouldBeNil)
				_, err := r.Classify()
				So(err, ShouldBeNil)
				So(r.FirstSeenAt.After(cfg.CapturedAt), ShouldBeFalse)
				So(r.QuotaCapacity, ShouldHaveLength, 4)
			}
		})

		Convey("Then priorities per applicant start at one and are distinct", func() {
			for _, byProgram := range snap.Records {
				seen := make(map[int]bool)
				for _, r := range byProgram {
					So(seen[r.SelectedPriority], ShouldBeFalse)
					seen[r.SelectedPriority] = true
				}
				So(seen[1], ShouldBeTrue)
			}
		})

		Convey("Then the same seed yields the same snapshot", func() {
			again := testsnapshot.Generate(cfg)
			So(again.Len(), ShouldEqual, snap.Len())
			for _, r := range snap.Ordered() {
				o, ok := again.Lookup(r.ApplicantID, r.Program)
				So(ok, ShouldBeTrue)
				So(o.SumScore, ShouldEqual, r.SumScore)
				So(o.Category, ShouldEqual, r.Category)
			}
		})

		Convey("Then applicant IDs are stable", func() {
			So(testsnapshot.ApplicantID(42, 0), ShouldEqual, testsnapshot.ApplicantID(42, 0))
			So(testsnapshot.ApplicantID(42, 0), ShouldNotEqual, testsnapshot.ApplicantID(43, 0))
		})
	})

	Convey("Given a config without programs", t, func() {
		cfg := smallConfig()
		cfg.Programs = nil
		snap := testsnapshot.Generate(cfg)

		Convey("Then the snapshot is empty", func() {
			So(snap.Len(), ShouldEqual, 0)
		})
	})
}

func TestWriteDump(t *testing.T) {
	Convey("Given a generated snapshot written to disk", t, func() {
		snap := testsnapshot.Generate(smallConfig())
		path := filepath.Join(t.TempDir(), "nested", "latest.json")
		So(testsnapshot.WriteDump(path, snap), ShouldBeNil)

		Convey("Then it decodes back with first-seen times", func() {
			f, err := os.Open(path)
			So(err, ShouldBeNil)
			defer f.Close()

			back, err := model.Decode(f)
			So(err, ShouldBeNil)
			So(back.Len(), ShouldEqual, snap.Len())
			for _, r := range snap.Ordered() {
				o, ok := back.Lookup(r.ApplicantID, r.Program)
				So(ok, ShouldBeTrue)
				So(o.FirstSeenAt.Equal(r.FirstSeenAt), ShouldBeTrue)
			}
		})
	})
}

func TestUpstream(t *testing.T) {
	Convey("Given the upstream stand-in behind basic auth", t, func() {
		snap := testsnapshot.Generate(smallConfig())
		srv := httptest.NewServer(testsnapshot.NewUpstream(func() *model.Snapshot { return snap }, "user", "secret"))
		defer srv.Close()

		Convey("When the fetch client asks with the right credentials", func() {
			at := time.Date(2024, 7, 1, 5, 0, 0, 0, time.UTC)
			client := fetch.New(srv.URL,
				fetch.WithCredentials("user", "secret"),
				fetch.WithClock(func() time.Time { return at }),
			)
			got, err := client.Fetch(context.Background())

			Convey("Then it receives every record", func() {
				So(err, ShouldBeNil)
				So(got.Len(), ShouldEqual, snap.Len())
				So(got.Applicants(), ShouldEqual, snap.Applicants())
				So(got.CapturedAt.Equal(at), ShouldBeTrue)
			})
		})

		Convey("When the credentials are wrong", func() {
			client := fetch.New(srv.URL, fetch.WithCredentials("user", "nope"))
			_, err := client.Fetch(context.Background())

			Convey("Then the fetch fails", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the method is not POST", func() {
			resp, err := http.Get(srv.URL)
			So(err, ShouldBeNil)
			resp.Body.Close()

			Convey("Then it is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}
