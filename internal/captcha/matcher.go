package captcha

import "strconv"

// Digit is a decoded keypad digit, 0-9, or NoMatch.
type Digit int

// NoMatch is returned when no template is closer than PatternBits. Callers must
// treat it as a failed decode for that slot, never as a digit.
const NoMatch Digit = 10

// Valid reports whether d is a real digit.
func (d Digit) Valid() bool { return d >= 0 && d <= 9 }

func (d Digit) String() string {
	if !d.Valid() {
		return "?"
	}
	return strconv.Itoa(int(d))
}

// Matcher classifies bit patterns against ten digit templates.
type Matcher struct {
	templates [10]BitPattern
}

var reference = NewMatcher(References())

// NewMatcher returns a matcher over the given templates, indexed by digit.
func NewMatcher(templates [10]BitPattern) *Matcher {
	return &Matcher{templates: templates}
}

// Reference returns the matcher for the portal's keypad glyphs.
func Reference() *Matcher { return reference }

// Classify returns the digit whose template matches p.
//
// An exact match wins immediately, scanning digits in ascending order.
// Otherwise the template with the smallest Hamming distance wins; on a tie the
// lower digit is kept. NoMatch is returned only when no template is closer
// than PatternBits.
func (m *Matcher) Classify(p BitPattern) Digit {
	d, _ := m.Nearest(p)
	return d
}

// Nearest is Classify that also returns the winning distance
// (PatternBits for NoMatch).
func (m *Matcher) Nearest(p BitPattern) (Digit, int) {
	for d, t := range m.templates {
		if p == t {
			return Digit(d), 0
		}
	}

	best, bestDist := NoMatch, PatternBits
	for d, t := range m.templates {
		if dist := p.Distance(t); dist < bestDist {
			best, bestDist = Digit(d), dist
		}
	}
	return best, bestDist
}

// Distances returns the Hamming distance from p to every template.
func (m *Matcher) Distances(p BitPattern) [10]int {
	var out [10]int
	for d, t := range m.templates {
		out[d] = p.Distance(t)
	}
	return out
}

// Classify classifies p with the reference matcher.
func Classify(p BitPattern) Digit { return reference.Classify(p) }
