package lead

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Value pools for synthetic leads.
var (
	SynthCompanies  = []string{"TechSoft", "BuildCorp", "FinServe", "HealthPlus", "GreenEnergy", "EduWorks", "AutoDrive"}
	SynthIndustries = []string{"Software", "Construction", "Finance", "Healthcare", "Energy", "Education", "Automotive"}
	SynthRoles      = []string{"Engineer", "Manager", "Director", "Analyst", "VP", "Consultant", "Intern"}
	SynthLocations  = []string{"New York", "San Francisco", "Chicago", "Boston", "Seattle", "Austin", "Denver"}

	firstNames = []string{"Ava", "Liam", "Mia", "Noah", "Zoe", "Ethan", "Ivy", "Lucas", "Nora", "Owen", "Ruby", "Elias"}
	lastNames  = []string{"Smith", "Garcia", "Chen", "Patel", "Okafor", "Nguyen", "Kowalski", "Silva", "Haddad", "Berg"}
)

// Synthetic company size bounds.
const (
	synthMinCompanySize = 50
	synthMaxCompanySize = 1000
)

// Synthesize generates n labeled leads from seed. A lead is labeled good
// when its past interaction score exceeds 0.5, the company has more than
// 100 employees and the contact is a Manager, Director or VP.
func Synthesize(n int, seed int64) []Lead {
	rnd := rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible fixtures
	out := make([]Lead, n)
	for i := range out {
		first := firstNames[rnd.Intn(len(firstNames))]
		last := lastNames[rnd.Intn(len(lastNames))]
		l := Lead{
			Name:                 first + " " + last,
			Email:                fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			Company:              SynthCompanies[rnd.Intn(len(SynthCompanies))],
			Industry:             SynthIndustries[rnd.Intn(len(SynthIndustries))],
			Role:                 SynthRoles[rnd.Intn(len(SynthRoles))],
			Location:             SynthLocations[rnd.Intn(len(SynthLocations))],
			CompanySize:          synthMinCompanySize + rnd.Intn(synthMaxCompanySize-synthMinCompanySize+1),
			PastInteractionScore: math.Round(rnd.Float64()*100) / 100,
		}
		l.LeadScore = Label(heuristicLabel(l))
		out[i] = l
	}
	return out
}

func heuristicLabel(l Lead) int {
	senior := l.Role == "Manager" || l.Role == "Director" || l.Role == "VP"
	if l.PastInteractionScore > 0.5 && l.CompanySize > 100 && senior {
		return 1
	}
	return 0
}
