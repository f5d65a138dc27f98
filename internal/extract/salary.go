package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Salary shapes seen in the wild: "$100k - $150k", "€60,000 – €80,000",
// "120-150k", "$95,000". Ranges are tried before single values.
var (
	salaryRangePattern  = regexp.MustCompile(`(?i)[\$£€]?\s*(\d{1,3}(?:,\d{3})+|\d+)\s*k?\s*[-–—]\s*[\$£€]?\s*(\d{1,3}(?:,\d{3})+|\d+)\s*k?`)
	salarySinglePattern = regexp.MustCompile(`(?i)[\$£€]\s*(\d{1,3}(?:,\d{3})+|\d+)\s*k?`)
)

// ParseSalary extracts a salary range from free text. Returns ok=false when
// no recognizable figure is present. A "k" suffix anywhere in the text
// scales values below 1000, so "$100 - $150k" reads as 100000–150000.
func ParseSalary(text string) (min, max int, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, 0, false
	}
	thousands := strings.Contains(strings.ToLower(text), "k")

	if m := salaryRangePattern.FindStringSubmatch(text); m != nil {
		lo := parseAmount(m[1], thousands)
		hi := parseAmount(m[2], thousands)
		if lo > 0 && hi >= lo {
			return lo, hi, true
		}
	}
	if m := salarySinglePattern.FindStringSubmatch(text); m != nil {
		v := parseAmount(m[1], thousands)
		if v > 0 {
			return v, v, true
		}
	}
	return 0, 0, false
}

func parseAmount(raw string, thousands bool) int {
	v, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0
	}
	if thousands && v < 1000 {
		v *= 1000
	}
	return v
}
