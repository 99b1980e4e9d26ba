package percentile

// Tier is a discrete performance label.
type Tier string

const (
	TierElite            Tier = "Elite"
	TierAdvanced         Tier = "Advanced"
	TierGood             Tier = "Good"
	TierAverage          Tier = "Average"
	TierBelowAverage     Tier = "Below Average"
	TierNeedsImprovement Tier = "Needs Improvement"
)

var tierThresholds = []struct {
	min  int
	tier Tier
}{
	{90, TierElite},
	{75, TierAdvanced},
	{60, TierGood},
	{40, TierAverage},
	{25, TierBelowAverage},
}

// TierFor returns the tier of a percentile.
func TierFor(percentile int) Tier {
	for _, t := range tierThresholds {
		if percentile >= t.min {
			return t.tier
		}
	}
	return TierNeedsImprovement
}
