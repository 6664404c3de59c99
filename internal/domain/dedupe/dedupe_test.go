package dedupe_test

import (
	"fmt"
	"testing"

	"github.com/okian/admstats/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSet(t *testing.T) {
	Convey("Given a new Set", t, func() {
		s := dedupe.NewSet()

		Convey("Then it starts empty", func() {
			So(s.Size(), ShouldEqual, 0)
			So(s.Contains("a"), ShouldBeFalse)
		})

		Convey("When an id is recorded twice", func() {
			first := s.SeenAndRecord("a")
			second := s.SeenAndRecord("a")

			Convey("Then only the first call reports it as new", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(s.Size(), ShouldEqual, 1)
			})
		})

		Convey("When many ids are added", func() {
			const n = 1000
			for i := 0; i < n; i++ {
				s.Add(fmt.Sprintf("id-%04d", i))
				s.Add(fmt.Sprintf("id-%04d", i))
			}

			Convey("Then each is counted once", func() {
				So(s.Size(), ShouldEqual, n)
				So(s.Contains("id-0000"), ShouldBeTrue)
				So(s.Contains("id-0999"), ShouldBeTrue)
				So(s.Contains("id-1000"), ShouldBeFalse)
			})
		})
	})
}

func TestUnionSize(t *testing.T) {
	Convey("Given two overlapping sets", t, func() {
		a, b := dedupe.NewSet(), dedupe.NewSet()
		for _, id := range []string{"1", "2", "3"} {
			a.Add(id)
		}
		for _, id := range []string{"3", "4"} {
			b.Add(id)
		}

		Convey("Then the union counts shared ids once in either direction", func() {
			So(a.UnionSize(b), ShouldEqual, 4)
			So(b.UnionSize(a), ShouldEqual, 4)
		})

		Convey("Then a union with an empty set is the set itself", func() {
			So(a.UnionSize(dedupe.NewSet()), ShouldEqual, 3)
		})
	})
}

func TestKeyed(t *testing.T) {
	Convey("Given keyed sets", t, func() {
		k := dedupe.NewKeyed[string]()

		Convey("When the same id is recorded under two keys", func() {
			So(k.SeenAndRecord("mon", "a"), ShouldBeFalse)
			So(k.SeenAndRecord("mon", "a"), ShouldBeTrue)
			So(k.SeenAndRecord("tue", "a"), ShouldBeFalse)
			So(k.SeenAndRecord("tue", "b"), ShouldBeFalse)

			Convey("Then each key counts its own distinct ids", func() {
				So(k.Sizes(), ShouldResemble, map[string]int{"mon": 1, "tue": 2})
			})
		})
	})
}
