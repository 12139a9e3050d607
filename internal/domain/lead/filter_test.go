package lead_test

import (
	"testing"

	"github.com/okian/leadscore/internal/domain/lead"
	. "github.com/smartystreets/goconvey/convey"
)

func fixture() lead.Unscored {
	return lead.Unscored{
		{Name: "Ada", Industry: "Software", Role: "Engineer", Location: "Boston", CompanySize: 120, PastInteractionScore: 0.7},
		{Name: "Bob", Industry: "Finance", Role: "Manager", Location: "New York", CompanySize: 900, PastInteractionScore: 0.9, LeadScore: lead.Label(1)},
		{Name: "Cy", Industry: "Finance", Role: "VP", Location: "Chicago", CompanySize: 60, PastInteractionScore: 0.2},
		{Name: "Dee", Industry: "", Role: "Director", Location: "Boston", CompanySize: 300, PastInteractionScore: 0.5},
	}
}

func names(rows lead.Unscored) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func scoredNames(rows lead.Scored) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestUnscoredFilter(t *testing.T) {
	Convey("Given an unscored batch", t, func() {
		rows := fixture()

		Convey("When filtering by a lower-case industry fragment", func() {
			got := rows.Filter(lead.Criteria{Industry: "fin"})

			Convey("Then only Finance rows survive, in order", func() {
				So(names(got), ShouldResemble, []string{"Bob", "Cy"})
			})
		})

		Convey("When criteria are empty with a min score", func() {
			got := rows.Filter(lead.Criteria{MinScore: 0.0})

			Convey("Then every row is returned unchanged", func() {
				So(got, ShouldResemble, rows)
			})
		})

		Convey("When a high min score is given", func() {
			got := rows.Filter(lead.Criteria{MinScore: 0.99})

			Convey("Then the score criterion is skipped", func() {
				So(len(got), ShouldEqual, len(rows))
			})
		})

		Convey("When filtering on several attributes", func() {
			got := rows.Filter(lead.Criteria{Role: "DIR", Location: "bos"})

			Convey("Then all criteria must hold", func() {
				So(names(got), ShouldResemble, []string{"Dee"})
			})
		})

		Convey("When filtering by industry and a row has none", func() {
			got := rows.Filter(lead.Criteria{Industry: "e"})

			Convey("Then the row with a missing industry never matches", func() {
				So(names(got), ShouldResemble, []string{"Ada", "Bob", "Cy"})
			})
		})

		Convey("When nothing matches", func() {
			got := rows.Filter(lead.Criteria{Location: "Mars"})

			Convey("Then the result is empty, not nil", func() {
				So(got, ShouldNotBeNil)
				So(len(got), ShouldEqual, 0)
			})
		})

		Convey("When filtering twice with the same criteria", func() {
			c := lead.Criteria{Industry: "finance", Role: "v"}
			once := rows.Filter(c)

			Convey("Then the second pass changes nothing", func() {
				So(once.Filter(c), ShouldResemble, once)
			})
		})

		Convey("When the result is modified", func() {
			got := rows.Filter(lead.Criteria{Industry: "finance"})
			*got[0].LeadScore = 0
			got[0].Name = "changed"

			Convey("Then the input rows are untouched", func() {
				So(rows[1].Name, ShouldEqual, "Bob")
				So(*rows[1].LeadScore, ShouldEqual, 1)
			})
		})
	})
}

func TestScoredFilter(t *testing.T) {
	Convey("Given a scored batch", t, func() {
		scored := fixture().Attach([]float64{0.8, 0.4, 0.75, 0.1})

		Convey("When every score is below the threshold", func() {
			got := scored.Filter(lead.Criteria{MinScore: 0.9})

			Convey("Then the result is empty", func() {
				So(got, ShouldNotBeNil)
				So(len(got), ShouldEqual, 0)
			})
		})

		Convey("When the threshold equals a score", func() {
			got := scored.Filter(lead.Criteria{MinScore: 0.75})

			Convey("Then that row is kept", func() {
				So(scoredNames(got), ShouldResemble, []string{"Ada", "Cy"})
			})
		})

		Convey("When combining text and score criteria", func() {
			c := lead.Criteria{Industry: "FIN", MinScore: 0.5}
			got := scored.Filter(c)

			Convey("Then both apply and the filter is idempotent", func() {
				So(scoredNames(got), ShouldResemble, []string{"Cy"})
				So(got.Filter(c), ShouldResemble, got)
			})
		})
	})
}

func TestAttach(t *testing.T) {
	Convey("Given an unscored batch", t, func() {
		rows := fixture()

		Convey("When attaching a probability per row", func() {
			scored := rows.Attach([]float64{0.1, 0.2, 0.3, 0.4})

			Convey("Then scores are row-aligned", func() {
				So(len(scored), ShouldEqual, 4)
				So(scored[2].Name, ShouldEqual, "Cy")
				So(scored[2].PredictedScore, ShouldEqual, 0.3)
				for i := range rows {
					So(scored[i].Lead, ShouldResemble, rows[i])
				}
			})
		})

		Convey("When the lengths differ", func() {
			Convey("Then nothing is attached", func() {
				So(rows.Attach([]float64{0.5}), ShouldBeNil)
			})
		})
	})
}

func TestSortByScore(t *testing.T) {
	Convey("Given a scored batch with ties", t, func() {
		scored := fixture().Attach([]float64{0.5, 0.9, 0.5, 0.1})

		Convey("When sorting descending", func() {
			got := scored.SortByScore(lead.SortDesc)

			Convey("Then higher scores come first and ties keep order", func() {
				So(scoredNames(got), ShouldResemble, []string{"Bob", "Ada", "Cy", "Dee"})
				So(scoredNames(scored), ShouldResemble, []string{"Ada", "Bob", "Cy", "Dee"})
			})
		})

		Convey("When sorting ascending", func() {
			got := scored.SortByScore(lead.SortAsc)

			Convey("Then lower scores come first", func() {
				So(scoredNames(got), ShouldResemble, []string{"Dee", "Ada", "Cy", "Bob"})
			})
		})

		Convey("When not sorting", func() {
			So(scoredNames(scored.SortByScore(lead.SortNone)), ShouldResemble, scoredNames(scored))
		})
	})
}

func TestParseSortOrder(t *testing.T) {
	Convey("Given sort order strings", t, func() {
		for in, want := range map[string]lead.SortOrder{"": lead.SortNone, "none": lead.SortNone, "DESC": lead.SortDesc, " asc ": lead.SortAsc} {
			got, err := lead.ParseSortOrder(in)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, want)
		}

		_, err := lead.ParseSortOrder("random")
		So(err, ShouldNotBeNil)
	})
}
