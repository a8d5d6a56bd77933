package matching

import (
	"fmt"
	"math"
	"strings"
)

const minCheckSizeReasonFit = 0.5

// reasonInputs collects what the scorers found for one contact.
type reasonInputs struct {
	contact     Contact
	name        NameMatch
	tagScore    float64
	tagsMatched []string
	role        RoleMatch
	checkSize   float64
	checkSizeOK bool
	geo         float64
	affinity    Affinity
}

// buildReasons assembles human-readable reasons in evaluation order, name match first.
func buildReasons(in reasonInputs) []string {
	var reasons []string

	if in.name.Matched {
		if in.name.Direct() {
			reasons = append(reasons, fmt.Sprintf("Name mentioned: %s", in.contact.Name))
		} else {
			reasons = append(reasons, fmt.Sprintf("Similar name: %s (%d%%)", in.contact.Name, int(math.Round(in.name.Score*100))))
		}
	}

	if in.tagScore > 0 && len(in.tagsMatched) > 0 {
		terms := strings.Join(in.tagsMatched, ", ")
		if in.contact.IsInvestor {
			reasons = append(reasons, fmt.Sprintf("%s focused on %s", investorLabel(in.contact), terms))
		} else {
			reasons = append(reasons, fmt.Sprintf("Shared focus: %s", terms))
		}
	}

	if in.role.Role != "" {
		reasons = append(reasons, fmt.Sprintf("Role match: %s (%s)", in.role.Role, in.contact.Title))
	}
	if in.role.InvestorType != "" {
		reasons = append(reasons, fmt.Sprintf("Investor type match: %s", in.role.InvestorType))
	}

	if in.checkSizeOK && in.checkSize >= minCheckSizeReasonFit {
		reasons = append(reasons, fmt.Sprintf("Check size fit: %s", formatRange(in.contact.CheckSizeMin, in.contact.CheckSizeMax)))
	}

	if in.geo > 0 {
		reasons = append(reasons, fmt.Sprintf("Location match: %s", in.contact.Location))
	}

	if len(in.affinity.SharedSchools) > 0 {
		reasons = append(reasons, fmt.Sprintf("Shared education: %s", strings.Join(in.affinity.SharedSchools, ", ")))
	}
	if len(in.affinity.SharedInterests) > 0 {
		reasons = append(reasons, fmt.Sprintf("Shared interests: %s", strings.Join(in.affinity.SharedInterests, ", ")))
	}
	if len(in.affinity.PortfolioOverlap) > 0 {
		reasons = append(reasons, fmt.Sprintf("Portfolio overlap: %s", strings.Join(in.affinity.PortfolioOverlap, ", ")))
	}
	if len(in.affinity.ExpertiseOverlap) > 0 {
		reasons = append(reasons, fmt.Sprintf("Expertise overlap: %s", strings.Join(in.affinity.ExpertiseOverlap, ", ")))
	}

	return reasons
}

// investorLabel renders "Angel investor", "GP/LP investor" or plain "Investor".
func investorLabel(c Contact) string {
	var labels []string
	for _, t := range c.ContactType {
		if t = strings.TrimSpace(t); t != "" && !strings.EqualFold(t, "investor") {
			labels = append(labels, t)
		}
	}
	if len(labels) == 0 {
		return "Investor"
	}
	return strings.Join(labels, "/") + " investor"
}

func formatRange(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil && *lo != *hi:
		return formatMoney(*lo) + "-" + formatMoney(*hi)
	case lo != nil:
		return formatMoney(*lo)
	case hi != nil:
		return formatMoney(*hi)
	default:
		return "unknown"
	}
}

func formatMoney(n float64) string {
	switch {
	case n >= 1_000_000:
		return "$" + trimZeros(n/1_000_000) + "M"
	case n >= 1_000:
		return "$" + trimZeros(n/1_000) + "K"
	default:
		return "$" + trimZeros(n)
	}
}

func trimZeros(f float64) string {
	s := fmt.Sprintf("%.1f", f)
	return strings.TrimSuffix(s, ".0")
}
