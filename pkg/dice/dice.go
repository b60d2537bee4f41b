// Package dice rolls simple additive dice expressions such as "2d6+1d4-2".
package dice

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
)

const (
	maxDice     = 100
	maxSides    = 1000
	maxModifier = 10000
)

var ErrInvalidExpression = errors.New("invalid dice expression")

// Term is one signed part of an expression: either a dice group or a flat
// modifier (Sides == 0).
type Term struct {
	Sign  int   `json:"sign"`
	Count int   `json:"count"`
	Sides int   `json:"sides,omitempty"`
	Rolls []int `json:"rolls,omitempty"`
}

type Result struct {
	Expression string `json:"expression"`
	Terms      []Term `json:"terms"`
	Total      int    `json:"total"`
}

// Roller evaluates expressions with its own random source. It is safe for
// concurrent use.
type Roller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoller(seed uint64) *Roller {
	return &Roller{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Parse splits expr into terms without rolling.
func Parse(expr string) ([]Term, error) {
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	if s == "" {
		return nil, ErrInvalidExpression
	}

	var terms []Term
	sign := 1
	start := 0
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != '+' && s[i] != '-' {
			continue
		}
		if i == start {
			// leading sign or doubled operator
			if i == 0 && i < len(s) {
				if s[i] == '-' {
					sign = -1
				}
				start = i + 1
				continue
			}
			return nil, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
		}
		term, err := parseTerm(s[start:i])
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, expr)
		}
		term.Sign = sign
		terms = append(terms, term)
		if i < len(s) {
			sign = 1
			if s[i] == '-' {
				sign = -1
			}
		}
		start = i + 1
	}
	return terms, nil
}

func parseTerm(s string) (Term, error) {
	count, sides, isDice := strings.Cut(s, "d")
	if !isDice {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 || n > maxModifier {
			return Term{}, ErrInvalidExpression
		}
		return Term{Count: n}, nil
	}

	n := 1
	if count != "" {
		var err error
		if n, err = strconv.Atoi(count); err != nil {
			return Term{}, ErrInvalidExpression
		}
	}
	m, err := strconv.Atoi(sides)
	if err != nil || n < 1 || n > maxDice || m < 2 || m > maxSides {
		return Term{}, ErrInvalidExpression
	}
	return Term{Count: n, Sides: m}, nil
}

// Roll parses and evaluates expr.
func (r *Roller) Roll(expr string) (Result, error) {
	terms, err := Parse(expr)
	if err != nil {
		return Result{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := Result{Expression: expr, Terms: terms}
	for i := range res.Terms {
		t := &res.Terms[i]
		if t.Sides == 0 {
			res.Total += t.Sign * t.Count
			continue
		}
		t.Rolls = make([]int, t.Count)
		for j := range t.Rolls {
			t.Rolls[j] = r.rng.IntN(t.Sides) + 1
			res.Total += t.Sign * t.Rolls[j]
		}
	}
	return res, nil
}
