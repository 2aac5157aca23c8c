package captcha

import (
	"math"
	"strconv"
	"strings"
	"time"

	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

// KeypadSize is the number of keypad positions, and of digits.
const KeypadSize = 10

// DefaultPrimingBudget is the minimum total time spent priming the keypad.
const DefaultPrimingBudget = 4 * time.Second

// Entry is the decoded digit shown at one keypad position.
type Entry struct {
	Position int   `json:"position"`
	Digit    Digit `json:"digit"`
}

// Table maps keypad positions to the digits drawn there for one login
// attempt. Index i holds the entry for position i.
type Table [KeypadSize]Entry

// NewTable builds a table from the digit decoded at each position.
func NewTable(digits [KeypadSize]Digit) Table {
	var t Table
	for pos, d := range digits {
		t[pos] = Entry{Position: pos, Digit: d}
	}
	return t
}

// DigitAt returns the digit shown at pos.
func (t Table) DigitAt(pos int) Digit { return t[pos].Digit }

// PositionsOf returns every position showing d, in position order.
func (t Table) PositionsOf(d Digit) []int {
	var out []int
	for _, e := range t {
		if e.Digit == d {
			out = append(out, e.Position)
		}
	}
	return out
}

// Undecoded returns the positions whose image matched no template.
func (t Table) Undecoded() []int {
	var out []int
	for _, e := range t {
		if !e.Digit.Valid() {
			out = append(out, e.Position)
		}
	}
	return out
}

// Duplicates returns the digits decoded at more than one position.
func (t Table) Duplicates() map[Digit][]int {
	var out map[Digit][]int
	for d := Digit(0); d < KeypadSize; d++ {
		if ps := t.PositionsOf(d); len(ps) > 1 {
			if out == nil {
				out = make(map[Digit][]int)
			}
			out[d] = ps
		}
	}
	return out
}

// IsBijection reports whether every digit 0-9 appears at exactly one position.
func (t Table) IsBijection() bool {
	var seen [KeypadSize]bool
	for _, e := range t {
		if !e.Digit.Valid() || seen[e.Digit] {
			return false
		}
		seen[e.Digit] = true
	}
	return true
}

// ValidateLogin checks that login is a non-empty string of decimal digits.
func ValidateLogin(login string) error {
	if login == "" {
		return apperr.New(apperr.InvalidLogin, "login is empty")
	}
	for i := 0; i < len(login); i++ {
		if login[i] < '0' || login[i] > '9' {
			return apperr.Newf(apperr.InvalidLogin, "login contains a non-digit character at index %d", i)
		}
	}
	return nil
}

// ClickSequence is the keypad positions to press, one per login digit.
type ClickSequence []int

// String concatenates the positions, which is the form the login form expects.
func (s ClickSequence) String() string {
	var sb strings.Builder
	for _, p := range s {
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}

// Transcode converts login into the positions showing each of its digits.
//
// Each login digit must be shown at exactly one position. A digit that was not
// decoded anywhere, or was decoded at several positions, fails with
// DigitDecodeAmbiguous rather than producing a sequence whose length differs
// from the login's.
func (t Table) Transcode(login string) (ClickSequence, error) {
	if err := ValidateLogin(login); err != nil {
		return nil, err
	}

	seq := make(ClickSequence, 0, len(login))
	for i := 0; i < len(login); i++ {
		d := Digit(login[i] - '0')
		positions := t.PositionsOf(d)
		if len(positions) != 1 {
			return nil, apperr.Newf(apperr.DigitDecodeAmbiguous, "digit %s is shown at %d keypad positions", d, len(positions)).
				WithMetadata("digit", d.String()).
				WithMetadata("positions", ClickSequence(positions).commaList()).
				WithMetadata("undecoded", ClickSequence(t.Undecoded()).commaList())
		}
		seq = append(seq, positions[0])
	}
	return seq, nil
}

func (s ClickSequence) commaList() string {
	parts := make([]string, len(s))
	for i, p := range s {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// PrimedPositions returns the distinct positions of seq in first-occurrence
// order. These are the keys a browser would fetch a pressed-state image for.
func PrimedPositions(seq ClickSequence) []int {
	var seen [KeypadSize]bool
	out := make([]int, 0, len(seq))
	for _, p := range seq {
		if p < 0 || p >= KeypadSize || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// PacingDelay is the wait after each priming request so that priming n
// positions takes at least budget: round(budget/n) to the millisecond.
func PacingDelay(n int, budget time.Duration) time.Duration {
	if n <= 0 || budget <= 0 {
		return 0
	}
	ms := math.Round(float64(budget) / float64(time.Millisecond) / float64(n))
	return time.Duration(ms) * time.Millisecond
}
