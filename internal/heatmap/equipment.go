package heatmap

import (
	"slices"
	"strings"
	"unicode"

	"github.com/claude/trainlog/internal/models"
)

// Equipment tags derived from movement names.
const (
	EquipmentBarbell      = "Barbell"
	EquipmentPullupBar    = "Pullup Bar or Rig"
	EquipmentAxleBar      = "Axle Bar"
	EquipmentDumbbells    = "Dumbbells"
	EquipmentWallBall     = "Wall Ball"
	EquipmentKettlebell   = "Kettlebell"
	EquipmentRowErg       = "Row Erg"
	EquipmentBikeErg      = "Bike Erg"
	EquipmentSkiErg       = "Ski Erg"
	EquipmentJumpRope     = "Jump Rope"
	EquipmentClimbingRope = "Climbing Rope"
	EquipmentPlyoBox      = "Plyo Box"
	EquipmentGHD          = "GHD"
	EquipmentRings        = "Rings"
	EquipmentHighRings    = "High Rings"
	EquipmentGymnastics   = "Gymnastics"
	EquipmentSandbag      = "Sandbag"
	EquipmentSled         = "Sled"
)

// equipmentRules are checked in order; the first match wins. Rings come
// before the bar so ring muscle-ups stay on rings, and implements come before
// the barbell lifts they are often paired with.
var equipmentRules = []struct {
	tag   string
	match func(tokens []string) bool
}{
	{EquipmentHighRings, words("ring muscle", "ring dip")},
	{EquipmentRings, words("ring")},
	{EquipmentClimbingRope, words("rope climb", "legless rope")},
	{EquipmentPullupBar, words("pull up", "pullup", "chin up", "chinup", "bar muscle", "muscle up", "muscleup",
		"toes to bar", "t2b", "ttb", "knees to elbow")},
	{EquipmentGymnastics, words("handstand", "hspu", "l sit", "dip")},
	{EquipmentDumbbells, words("dumbbell", "db")},
	{EquipmentKettlebell, words("kettlebell", "kb")},
	{EquipmentWallBall, words("wall ball", "med ball")},
	{EquipmentSandbag, words("sandbag")},
	{EquipmentSled, words("sled")},
	{EquipmentAxleBar, words("axle")},
	{EquipmentBarbell, words("barbell", "clean", "snatch", "deadlift", "squat", "press", "jerk", "thruster")},
	{EquipmentRowErg, words("row")},
	{EquipmentBikeErg, words("bike", "airbike", "assault bike", "echo bike")},
	{EquipmentSkiErg, words("ski erg", "skierg")},
	{EquipmentJumpRope, words("jump rope", "double under", "single under")},
	{EquipmentPlyoBox, words("box")},
	{EquipmentGHD, words("ghd", "glute ham")},
}

// words matches a phrase against consecutive name tokens, each token starting
// with the corresponding phrase word. "row" matches "Rows" but not "Narrow".
func words(phrases ...string) func([]string) bool {
	split := make([][]string, len(phrases))
	for i, p := range phrases {
		split[i] = strings.Fields(p)
	}
	return func(tokens []string) bool {
		for _, phrase := range split {
			for i := 0; i+len(phrase) <= len(tokens); i++ {
				if prefixesMatch(tokens[i:i+len(phrase)], phrase) {
					return true
				}
			}
		}
		return false
	}
}

func prefixesMatch(tokens, phrase []string) bool {
	for j, w := range phrase {
		if !strings.HasPrefix(tokens[j], w) {
			return false
		}
	}
	return true
}

func tokenize(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// DetectEquipment returns the sorted, de-duplicated equipment tags implied by
// a workout's movement names. Movements without equipment contribute nothing.
func DetectEquipment(exercises []string) []string {
	var tags []string
	for _, ex := range exercises {
		tokens := tokenize(ex)
		for _, r := range equipmentRules {
			if r.match(tokens) {
				tags = append(tags, r.tag)
				break
			}
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

var gymnasticsEquipment = []string{EquipmentPullupBar, EquipmentHighRings, EquipmentRings, EquipmentClimbingRope, EquipmentGymnastics}

// Filter restricts the records a heat map is built from.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterBarbell    Filter = "barbell"
	FilterNoBarbell  Filter = "no_barbell"
	FilterGymnastics Filter = "gymnastics"
	FilterBodyweight Filter = "bodyweight"
)

// ParseFilter parses a filter name. An empty name is FilterAll; "no-barbell"
// is accepted for FilterNoBarbell.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterBarbell, FilterNoBarbell, FilterGymnastics, FilterBodyweight:
		return f, nil
	}
	return "", &models.ValidationError{Field: "equipment", Value: s, Reason: "unknown filter"}
}

// Match reports whether a record with the given equipment tags passes the filter.
func (f Filter) Match(tags []string) bool {
	barbell := slices.Contains(tags, EquipmentBarbell)
	switch f {
	case FilterBarbell:
		return barbell
	case FilterNoBarbell:
		return !barbell
	case FilterGymnastics:
		return hasAny(tags, gymnasticsEquipment)
	case FilterBodyweight:
		return !barbell && !hasAny(tags, gymnasticsEquipment)
	default:
		return true
	}
}

// Apply returns the records passing the filter, in input order.
func (f Filter) Apply(records []models.HeatMapRecord) []models.HeatMapRecord {
	out := make([]models.HeatMapRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r.EquipmentTags) {
			out = append(out, r)
		}
	}
	return out
}

func hasAny(tags, want []string) bool {
	for _, t := range tags {
		if slices.Contains(want, t) {
			return true
		}
	}
	return false
}
