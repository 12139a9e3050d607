// Package encoding converts categorical lead attributes into the numeric
// codes the classifier was trained on.
//
// A CodeTable is derived once from reference data and never mutated. Codes
// are assigned in lexicographic order of the distinct values, so deriving
// twice from the same values yields the same table regardless of row order.
// Values outside a vocabulary encode to Unknown.
package encoding

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/okian/leadscore/internal/domain/lead"
)

// Unknown is the code emitted for a value absent from a vocabulary.
const Unknown = -1

// Attribute names a categorical lead attribute.
type Attribute string

// Categorical attributes, in classifier column order.
const (
	Company  Attribute = lead.ColCompany
	Industry Attribute = lead.ColIndustry
	Role     Attribute = lead.ColRole
	Location Attribute = lead.ColLocation
)

// Attributes lists the categorical attributes in classifier column order.
var Attributes = []Attribute{Company, Industry, Role, Location}

// FeatureNames is the classifier's input column order.
var FeatureNames = []string{
	lead.ColCompany, lead.ColIndustry, lead.ColRole, lead.ColLocation,
	lead.ColCompanySize, lead.ColPastInteractionScore,
}

func (a Attribute) value(l *lead.Lead) string {
	switch a {
	case Company:
		return l.Company
	case Industry:
		return l.Industry
	case Role:
		return l.Role
	case Location:
		return l.Location
	}
	return ""
}

// Code is the result of a vocabulary lookup.
type Code struct {
	Value int
	Known bool
}

// Vocabulary maps the distinct values of one attribute to dense codes.
type Vocabulary struct {
	classes []string
	index   map[string]int
}

func newVocabulary(values []string) Vocabulary {
	seen := make(map[string]struct{}, len(values))
	classes := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	return Vocabulary{classes: classes, index: index}
}

// Lookup returns the code for v. Missing and unseen values are not Known
// and carry the Unknown code.
func (v Vocabulary) Lookup(value string) Code {
	if i, ok := v.index[value]; ok {
		return Code{Value: i, Known: true}
	}
	return Code{Value: Unknown}
}

// Len returns the number of known values.
func (v Vocabulary) Len() int { return len(v.classes) }

// Classes returns the known values in code order.
func (v Vocabulary) Classes() []string {
	out := make([]string, len(v.classes))
	copy(out, v.classes)
	return out
}

// CodeTable holds one vocabulary per categorical attribute.
type CodeTable struct {
	vocab map[Attribute]Vocabulary
}

// Vocabulary returns the vocabulary of attr. An attribute never seen yields
// an empty vocabulary.
func (t CodeTable) Vocabulary(attr Attribute) Vocabulary {
	return t.vocab[attr]
}

// Sizes returns the vocabulary size per attribute.
func (t CodeTable) Sizes() map[Attribute]int {
	out := make(map[Attribute]int, len(Attributes))
	for _, a := range Attributes {
		out[a] = t.vocab[a].Len()
	}
	return out
}

// Equal reports whether t and o assign the same codes.
func (t CodeTable) Equal(o CodeTable) bool {
	for _, a := range Attributes {
		x, y := t.vocab[a].classes, o.vocab[a].classes
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
	}
	return true
}

// MarshalJSON encodes the table as attribute -> classes in code order.
func (t CodeTable) MarshalJSON() ([]byte, error) {
	out := make(map[Attribute][]string, len(Attributes))
	for _, a := range Attributes {
		out[a] = t.vocab[a].Classes()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a table written by MarshalJSON. Classes must be
// sorted and unique so the decoded codes match the derived ones.
func (t *CodeTable) UnmarshalJSON(data []byte) error {
	var in map[Attribute][]string
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode code table: %w", err)
	}
	vocab := make(map[Attribute]Vocabulary, len(Attributes))
	for _, a := range Attributes {
		classes := in[a]
		for i := 1; i < len(classes); i++ {
			if classes[i-1] >= classes[i] {
				return fmt.Errorf("code table %s: classes not sorted and unique at %d", a, i)
			}
		}
		vocab[a] = newVocabulary(classes)
	}
	t.vocab = vocab
	return nil
}

// Encoded is a lead in classifier input form.
type Encoded struct {
	Company              Code
	Industry             Code
	Role                 Code
	Location             Code
	CompanySize          int
	PastInteractionScore float64
}

// Code returns the code of attr.
func (e Encoded) Code(attr Attribute) Code {
	switch attr {
	case Company:
		return e.Company
	case Industry:
		return e.Industry
	case Role:
		return e.Role
	case Location:
		return e.Location
	}
	return Code{Value: Unknown}
}

// Features returns the six classifier columns in FeatureNames order.
func (e Encoded) Features() []float64 {
	return []float64{
		float64(e.Company.Value),
		float64(e.Industry.Value),
		float64(e.Role.Value),
		float64(e.Location.Value),
		float64(e.CompanySize),
		e.PastInteractionScore,
	}
}

// Derive builds a code table from rows and encodes them with it.
func Derive(rows []lead.Lead) ([]Encoded, CodeTable) {
	vocab := make(map[Attribute]Vocabulary, len(Attributes))
	for _, a := range Attributes {
		values := make([]string, len(rows))
		for i := range rows {
			values[i] = a.value(&rows[i])
		}
		vocab[a] = newVocabulary(values)
	}
	table := CodeTable{vocab: vocab}
	return Apply(rows, table), table
}

// Apply encodes rows with a previously derived table. It never fails:
// values outside the table encode to Unknown.
func Apply(rows []lead.Lead, table CodeTable) []Encoded {
	out := make([]Encoded, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = Encoded{
			Company:              table.vocab[Company].Lookup(r.Company),
			Industry:             table.vocab[Industry].Lookup(r.Industry),
			Role:                 table.vocab[Role].Lookup(r.Role),
			Location:             table.vocab[Location].Lookup(r.Location),
			CompanySize:          r.CompanySize,
			PastInteractionScore: r.PastInteractionScore,
		}
	}
	return out
}

// FeatureMatrix returns the classifier input for rows, one row each.
func FeatureMatrix(rows []Encoded) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Features()
	}
	return out
}

// UnknownCounts counts rows per attribute whose value was not Known.
func UnknownCounts(rows []Encoded) map[Attribute]int {
	out := make(map[Attribute]int, len(Attributes))
	for _, r := range rows {
		for _, a := range Attributes {
			if !r.Code(a).Known {
				out[a]++
			}
		}
	}
	return out
}
