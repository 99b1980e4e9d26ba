package heatmap

import (
	"sort"
	"strings"
)

// Canonical time domains in display order.
var TimeDomainOrder = []string{
	"1:00–5:00",
	"5:00–10:00",
	"10:00–15:00",
	"15:00–20:00",
	"20:00–30:00",
	"30:00+",
}

var timeDomainAliases = map[string]string{
	"1:00 - 5:00":   "1:00–5:00",
	"5:00 - 10:00":  "5:00–10:00",
	"10:00 - 15:00": "10:00–15:00",
	"15:00 - 20:00": "15:00–20:00",
	"20:00 - 30:00": "20:00–30:00",
	"20:00+":        "20:00–30:00",
}

// NormalizeTimeDomain maps alternative spellings of a time domain onto the
// canonical form. Unknown domains are returned trimmed.
func NormalizeTimeDomain(s string) string {
	s = strings.TrimSpace(s)
	if c, ok := timeDomainAliases[s]; ok {
		return c
	}
	// Hyphenated ranges such as "5:00-10:00".
	if c, ok := timeDomainAliases[strings.Replace(s, "-", " - ", 1)]; ok {
		return c
	}
	return s
}

// TimeDomainForSeconds buckets a workout duration.
func TimeDomainForSeconds(sec int) string {
	switch {
	case sec <= 0:
		return ""
	case sec <= 300:
		return TimeDomainOrder[0]
	case sec <= 600:
		return TimeDomainOrder[1]
	case sec <= 900:
		return TimeDomainOrder[2]
	case sec <= 1200:
		return TimeDomainOrder[3]
	case sec <= 1800:
		return TimeDomainOrder[4]
	default:
		return TimeDomainOrder[5]
	}
}

func timeDomainRank(d string) int {
	for i, c := range TimeDomainOrder {
		if c == d {
			return i
		}
	}
	return len(TimeDomainOrder)
}

// sortTimeDomains orders canonical domains first, then unknown ones by name.
func sortTimeDomains(domains []string) {
	sort.Slice(domains, func(i, j int) bool {
		ri, rj := timeDomainRank(domains[i]), timeDomainRank(domains[j])
		if ri != rj {
			return ri < rj
		}
		return domains[i] < domains[j]
	})
}
