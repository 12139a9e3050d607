// Package lead contains the lead record model and the row batches passed
// through the scoring pipeline.
package lead

// Column names of the lead table, in schema order.
const (
	ColName                 = "Name"
	ColEmail                = "Email"
	ColCompany              = "Company"
	ColIndustry             = "Industry"
	ColRole                 = "Role"
	ColLocation             = "Location"
	ColCompanySize          = "CompanySize"
	ColPastInteractionScore = "PastInteractionScore"
	ColLeadScore            = "LeadScore"
	ColPredictedScore       = "PredictedScore"
)

// Columns is the reference dataset header.
var Columns = []string{
	ColName, ColEmail, ColCompany, ColIndustry, ColRole, ColLocation,
	ColCompanySize, ColPastInteractionScore, ColLeadScore,
}

// ScoredColumns is Columns followed by PredictedScore.
var ScoredColumns = append(append([]string{}, Columns...), ColPredictedScore)

// Lead is a prospective sales contact. A missing categorical value is the
// empty string.
type Lead struct {
	Name                 string  `json:"Name"`
	Email                string  `json:"Email"`
	Company              string  `json:"Company"`
	Industry             string  `json:"Industry"`
	Role                 string  `json:"Role"`
	Location             string  `json:"Location"`
	CompanySize          int     `json:"CompanySize"`
	PastInteractionScore float64 `json:"PastInteractionScore"`
	// LeadScore is the ground-truth label, nil outside training data.
	LeadScore *int `json:"LeadScore,omitempty"`
}

// ScoredLead is a Lead with the classifier's positive-class probability.
type ScoredLead struct {
	Lead
	PredictedScore float64 `json:"PredictedScore"`
}

// Unscored is a batch of leads that has not been through the classifier.
type Unscored []Lead

// Scored is a batch of leads carrying a PredictedScore.
type Scored []ScoredLead

// Attach pairs every lead in u with the probability at the same index.
// It returns nil if the lengths differ.
func (u Unscored) Attach(probs []float64) Scored {
	if len(u) != len(probs) {
		return nil
	}
	out := make(Scored, len(u))
	for i, l := range u {
		out[i] = ScoredLead{Lead: l.clone(), PredictedScore: probs[i]}
	}
	return out
}

// Label returns a copy-safe pointer to label v, for building fixtures and
// parsed rows.
func Label(v int) *int { return &v }

func (l Lead) clone() Lead {
	if l.LeadScore != nil {
		l.LeadScore = Label(*l.LeadScore)
	}
	return l
}
