package matching

import (
	"sort"
	"strings"
)

// tagVocabulary holds investment and domain terms detected in a contact's free text.
var tagVocabulary = []string{
	"pre-seed", "seed", "series a", "series b", "series c", "growth", "late stage",
	"biotech", "healthtech", "fintech", "insurtech", "proptech", "edtech", "cleantech",
	"climate", "saas", "b2b", "b2c", "marketplace", "enterprise", "consumer", "deeptech",
	"crypto", "machine learning",
}

// ContactTags derives the lower-cased, sorted tag set of a contact.
func ContactTags(c Contact) []string {
	set := make(map[string]struct{})
	add := func(values ...string) {
		for _, v := range values {
			v = strings.ToLower(strings.TrimSpace(v))
			if v != "" {
				set[v] = struct{}{}
			}
		}
	}

	for _, th := range c.Theses {
		add(th.Sectors...)
		add(th.Stages...)
		add(th.Geos...)
	}
	add(c.ContactType...)
	if c.IsInvestor {
		add("investor")
	}

	text := strings.ToLower(strings.Join([]string{c.Bio, c.Title, c.InvestorNotes}, " "))
	for _, term := range tagVocabulary {
		if strings.Contains(text, term) {
			add(term)
		}
	}

	tags := make([]string, 0, len(set))
	for tag := range set {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// contactText is the free text the semantic scorer searches.
func contactText(c Contact) string {
	return strings.ToLower(strings.Join([]string{c.Bio, c.Title, c.InvestorNotes, c.Company}, " "))
}
