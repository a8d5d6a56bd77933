package matching

import (
	"strings"
	"unicode/utf8"
)

// NameMatchType records which rule of the name cascade produced a match.
type NameMatchType string

const (
	NameMatchNone          NameMatchType = ""
	NameMatchExact         NameMatchType = "exact"
	NameMatchContains      NameMatchType = "contains"
	NameMatchFirstOnly     NameMatchType = "first-only"
	NameMatchFirstNickname NameMatchType = "first-nickname"
	NameMatchFuzzyBoth     NameMatchType = "fuzzy-both"
	NameMatchLastOnly      NameMatchType = "last-only"
	NameMatchLevenshtein   NameMatchType = "levenshtein"
)

const (
	scoreExact          = 1.0
	scoreContains       = 0.95
	scoreFuzzyBoth      = 0.9
	scoreFirstOnly      = 0.7
	scoreFirstNickname  = 0.65
	scoreLastOnly       = 0.5
	minLevenshteinScore = 0.8
	maxLastNameDistance = 2
)

// NameMatch is the outcome of comparing a mentioned name with a contact name.
type NameMatch struct {
	Matched bool
	Score   float64
	Type    NameMatchType
}

// Direct reports whether the match came from exact or substring equality.
func (m NameMatch) Direct() bool {
	return m.Type == NameMatchExact || m.Type == NameMatchContains
}

var nicknameGroups = [][]string{
	{"matt", "matthew"},
	{"rob", "robert", "bob"},
	{"mike", "michael"},
	{"jim", "james"},
	{"bill", "william"},
	{"tom", "thomas"},
	{"joe", "joseph"},
	{"dan", "daniel"},
	{"chris", "christopher"},
	{"alex", "alexander"},
	{"sam", "samuel"},
	{"nick", "nicholas"},
	{"steve", "steven", "stephen"},
	{"tony", "anthony"},
	{"dave", "david"},
	{"ed", "edward"},
	{"sara", "sarah"},
	{"kate", "katherine"},
	{"liz", "elizabeth"},
	{"jen", "jennifer"},
}

var nicknameIndex = func() map[string]int {
	idx := make(map[string]int)
	for i, group := range nicknameGroups {
		for _, name := range group {
			idx[name] = i
		}
	}
	return idx
}()

func nicknames(a, b string) bool {
	ga, okA := nicknameIndex[a]
	gb, okB := nicknameIndex[b]
	return okA && okB && ga == gb
}

func nameTokens(s string) []string {
	fields := strings.Fields(s)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// FuzzyNameMatch compares a mentioned name against one contact name. Rules are evaluated in a
// fixed order and the first hit wins.
func FuzzyNameMatch(mentioned, contactName string) NameMatch {
	m := strings.ToLower(strings.TrimSpace(mentioned))
	c := strings.ToLower(strings.TrimSpace(contactName))
	if m == "" || c == "" {
		return NameMatch{}
	}

	if m == c {
		return NameMatch{Matched: true, Score: scoreExact, Type: NameMatchExact}
	}
	if strings.Contains(c, m) || strings.Contains(m, c) {
		return NameMatch{Matched: true, Score: scoreContains, Type: NameMatchContains}
	}

	mParts := nameTokens(m)
	cParts := nameTokens(c)

	if len(mParts) == 1 {
		if len(cParts) == 0 {
			return NameMatch{}
		}
		if mParts[0] == cParts[0] {
			return NameMatch{Matched: true, Score: scoreFirstOnly, Type: NameMatchFirstOnly}
		}
		if nicknames(mParts[0], cParts[0]) {
			return NameMatch{Matched: true, Score: scoreFirstNickname, Type: NameMatchFirstNickname}
		}
		return NameMatch{}
	}

	if len(mParts) >= 2 && len(cParts) >= 2 {
		mFirst, mLast := mParts[0], mParts[len(mParts)-1]
		cFirst, cLast := cParts[0], cParts[len(cParts)-1]

		firstMatch := mFirst == cFirst ||
			strings.HasPrefix(mFirst, cFirst) ||
			strings.HasPrefix(cFirst, mFirst) ||
			nicknames(mFirst, cFirst)
		lastMatch := mLast == cLast || Levenshtein(mLast, cLast) <= maxLastNameDistance

		if firstMatch && lastMatch {
			return NameMatch{Matched: true, Score: scoreFuzzyBoth, Type: NameMatchFuzzyBoth}
		}

		// Unreachable: single-token mentions return above. Kept until product decides what a
		// last-name-only mention should score.
		if lastMatch && len(mParts) == 1 {
			return NameMatch{Matched: true, Score: scoreLastOnly, Type: NameMatchLastOnly}
		}
	}

	similarity := 1 - float64(Levenshtein(m, c))/float64(max(utf8.RuneCountInString(m), utf8.RuneCountInString(c)))
	if similarity >= minLevenshteinScore {
		return NameMatch{Matched: true, Score: similarity, Type: NameMatchLevenshtein}
	}

	return NameMatch{}
}

// MatchContactName returns the best match of a mentioned name across the contact's full name and
// its first+last composition.
func MatchContactName(mentioned string, c Contact) NameMatch {
	candidates := []string{c.Name}
	if c.FirstName != "" && c.LastName != "" {
		candidates = append(candidates, c.FirstName+" "+c.LastName)
	}

	var best NameMatch
	for _, name := range candidates {
		if m := FuzzyNameMatch(mentioned, name); m.Matched && m.Score > best.Score {
			best = m
		}
	}
	return best
}

// Levenshtein is the unit-cost edit distance between two strings, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}
