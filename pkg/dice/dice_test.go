package dice_test

import (
	"errors"
	"testing"

	"github.com/tablesync/tablesync/pkg/dice"
)

func TestParse(t *testing.T) {
	terms, err := dice.Parse("2d6 + d4 - 3")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []dice.Term{
		{Sign: 1, Count: 2, Sides: 6},
		{Sign: 1, Count: 1, Sides: 4},
		{Sign: -1, Count: 3},
	}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %+v", len(want), terms)
	}
	for i := range want {
		if terms[i].Sign != want[i].Sign || terms[i].Count != want[i].Count || terms[i].Sides != want[i].Sides {
			t.Errorf("term %d = %+v, want %+v", i, terms[i], want[i])
		}
	}
}

func TestParseRejects(t *testing.T) {
	for _, expr := range []string{"", "d", "2d", "2d1", "0d6", "1d6d6", "2d6+", "2d6++1", "abc", "101d6", "1d1001", "10001", "1d6+10001", "9223372036854775807+1", "-9223372036854775808"} {
		if _, err := dice.Parse(expr); !errors.Is(err, dice.ErrInvalidExpression) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidExpression", expr, err)
		}
	}
}

func TestLargestModifierIsAccepted(t *testing.T) {
	res, err := dice.NewRoller(1).Roll("10000-10000")
	if err != nil {
		t.Fatalf("Roll: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("expected total 0, got %d", res.Total)
	}
}

func TestRollWithinBounds(t *testing.T) {
	r := dice.NewRoller(42)
	for i := 0; i < 200; i++ {
		res, err := r.Roll("3d6-1")
		if err != nil {
			t.Fatalf("Roll failed: %v", err)
		}
		if res.Total < 2 || res.Total > 17 {
			t.Fatalf("total %d out of range", res.Total)
		}
		if len(res.Terms[0].Rolls) != 3 {
			t.Fatalf("expected 3 rolls, got %v", res.Terms[0].Rolls)
		}
	}
}

func TestRollIsDeterministicPerSeed(t *testing.T) {
	a, _ := dice.NewRoller(7).Roll("10d20")
	b, _ := dice.NewRoller(7).Roll("10d20")
	if a.Total != b.Total {
		t.Errorf("same seed produced %d and %d", a.Total, b.Total)
	}
}

func TestRollNegativeLeadingTerm(t *testing.T) {
	res, err := dice.NewRoller(1).Roll("-2+5")
	if err != nil {
		t.Fatalf("Roll failed: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("expected 3, got %d", res.Total)
	}
}
