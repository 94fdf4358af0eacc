// Package extract scans recognized screenshot text for UPI transaction
// references. It is pure and deterministic: the same input text always
// yields the same ranked candidates, independent of the OCR layer.
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Candidate is one scored reference found in the text.
type Candidate struct {
	Reference  string
	Confidence int
	Format     Format
}

// Result is the ranked outcome of an extraction run.
type Result struct {
	Found        bool
	Reference    string
	Confidence   int
	Format       Format
	Alternatives []Candidate
	Reason       string // diagnostic when Found is false
}

var (
	runShapeRE = regexp.MustCompile(`^(?:[A-Za-z]+\d+|\d+[A-Za-z]+)$`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Extract runs the ordered pattern passes over recognized text and returns
// the best candidate plus up to two alternatives.
func Extract(text string) Result {
	text = whitespace.ReplaceAllString(text, " ")
	if strings.TrimSpace(text) == "" {
		return Result{Reason: "empty recognized text"}
	}

	type scored struct {
		Candidate
		priority int // pattern table index, lower wins ties
		pos      int // first match position, stable ordering
	}
	byRef := map[string]scored{}
	order := []string{}

	for pi, p := range patterns {
		locs := p.re.FindAllStringSubmatchIndex(text, -1)
		for _, loc := range locs {
			// capture group 1
			ref := text[loc[2]:loc[3]]
			if !ValidateCandidate(ref) {
				continue
			}
			conf := scoreCandidate(ref, p.base, p.tag)
			key := strings.ToUpper(strings.TrimSpace(ref))
			cur, seen := byRef[key]
			if !seen {
				byRef[key] = scored{Candidate{ref, conf, p.tag}, pi, loc[2]}
				order = append(order, key)
				continue
			}
			if conf > cur.Confidence || (conf == cur.Confidence && pi < cur.priority) {
				byRef[key] = scored{Candidate{ref, conf, p.tag}, pi, cur.pos}
			}
		}
	}

	if len(order) == 0 {
		return Result{Reason: "no token passed reference validation"}
	}

	ranked := make([]scored, 0, len(order))
	for _, k := range order {
		ranked = append(ranked, byRef[k])
	}
	// Descending confidence; ties broken by pattern priority then position.
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.pos < b.pos
	})

	res := Result{
		Found:      true,
		Reference:  ranked[0].Reference,
		Confidence: ranked[0].Confidence,
		Format:     ranked[0].Format,
	}
	for _, alt := range ranked[1:] {
		res.Alternatives = append(res.Alternatives, alt.Candidate)
		if len(res.Alternatives) == 2 {
			break
		}
	}
	return res
}

// scoreCandidate applies the base confidence of the matching pass and the
// shape adjustments: a letters-then-digits (or reverse) run shape is typical
// of real references and earns a bonus; a bare 6-8 digit run outside the
// bank-transfer pass usually means a date, not a reference.
func scoreCandidate(ref string, base int, tag Format) int {
	conf := base
	if runShapeRE.MatchString(ref) {
		conf += 5
	}
	if tag != FormatBankTransfer && onlyDigits(ref) && len(ref) >= 6 && len(ref) <= 8 {
		conf -= 10
	}
	if conf > 100 {
		conf = 100
	}
	if conf < 0 {
		conf = 0
	}
	return conf
}
