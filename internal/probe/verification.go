package probe

import (
	"fmt"
	"strings"

	"github.com/okian/leadscore/internal/domain/lead"
)

// verify checks rows against the case that produced them. all is the
// unfiltered listing in file order.
func verify(tc Case, rows, all lead.Scored) error {
	for i, r := range rows {
		if r.PredictedScore < 0 || r.PredictedScore > 1 {
			return fmt.Errorf("row %d (%s): score %v outside [0, 1]", i, r.Email, r.PredictedScore)
		}
		if r.PredictedScore < tc.MinScore {
			return fmt.Errorf("row %d (%s): score %v below min_score %v", i, r.Email, r.PredictedScore, tc.MinScore)
		}
		for _, f := range []struct{ name, got, want string }{
			{"industry", r.Industry, tc.Industry},
			{"role", r.Role, tc.Role},
			{"location", r.Location, tc.Location},
		} {
			if f.want != "" && !strings.Contains(strings.ToLower(f.got), strings.ToLower(f.want)) {
				return fmt.Errorf("row %d (%s): %s %q does not contain %q", i, r.Email, f.name, f.got, f.want)
			}
		}
		if i == 0 {
			continue
		}
		prev := rows[i-1].PredictedScore
		switch tc.Sort {
		case "desc":
			if prev < r.PredictedScore {
				return fmt.Errorf("row %d: scores not descending", i)
			}
		case "asc":
			if prev > r.PredictedScore {
				return fmt.Errorf("row %d: scores not ascending", i)
			}
		}
	}

	if want := expected(tc, all); want != len(rows) {
		return fmt.Errorf("got %d rows, the unfiltered listing has %d matching", len(rows), want)
	}
	return nil
}

// expected counts the rows of all that satisfy tc.
func expected(tc Case, all lead.Scored) int {
	n := 0
	for _, r := range all {
		if r.PredictedScore >= tc.MinScore &&
			contains(r.Industry, tc.Industry) &&
			contains(r.Role, tc.Role) &&
			contains(r.Location, tc.Location) {
			n++
		}
	}
	return n
}

func contains(field, want string) bool {
	return want == "" || strings.Contains(strings.ToLower(field), strings.ToLower(want))
}

// sameRows reports whether export holds the same leads as listing, in order.
func sameRows(listing, export lead.Scored) error {
	if len(listing) != len(export) {
		return fmt.Errorf("export has %d rows, listing has %d", len(export), len(listing))
	}
	for i := range listing {
		if listing[i].Email != export[i].Email {
			return fmt.Errorf("row %d: export %s, listing %s", i, export[i].Email, listing[i].Email)
		}
	}
	return nil
}
