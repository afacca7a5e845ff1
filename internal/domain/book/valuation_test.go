package book_test

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/booksexchange/booksexchange-api/internal/domain/book"
)

func TestConditionPointValue(t *testing.T) {
	cases := []struct {
		condition book.Condition
		want      int
	}{
		{book.ConditionExcellent, 15},
		{book.ConditionGood, 12},
		{book.ConditionFair, 8},
		{book.ConditionPoor, 5},
		{book.Condition("unknown"), 10},
	}

	for _, tc := range cases {
		if got := tc.condition.PointValue(); got != tc.want {
			t.Errorf("PointValue(%s) = %d, want %d", tc.condition, got, tc.want)
		}
	}
}

func TestConditionMultiplier(t *testing.T) {
	cases := []struct {
		condition book.Condition
		want      float64
	}{
		{book.ConditionExcellent, 1.0},
		{book.ConditionGood, 0.8},
		{book.ConditionFair, 0.6},
		{book.ConditionPoor, 0.4},
		{book.Condition("unknown"), 0.6},
	}

	for _, tc := range cases {
		if got := tc.condition.Multiplier(); !closeTo(got, tc.want) {
			t.Errorf("Multiplier(%s) = %v, want %v", tc.condition, got, tc.want)
		}
	}
}

func TestQRCodeIDDerivation(t *testing.T) {
	permanentID := uuid.MustParse("a1b2c3d4-e5f6-7890-abcd-ef0123456789")

	got := book.QRCodeID(permanentID)
	if got != "book_a1b2c3d4e5f6" {
		t.Errorf("QRCodeID = %q, want %q", got, "book_a1b2c3d4e5f6")
	}

	// Same permanent id always yields the same code.
	if again := book.QRCodeID(permanentID); again != got {
		t.Errorf("QRCodeID not stable: %q vs %q", got, again)
	}

	if !strings.HasPrefix(got, "book_") || len(got) != len("book_")+12 {
		t.Errorf("QRCodeID %q has wrong shape", got)
	}
}

func TestDemandScore(t *testing.T) {
	if got := book.DemandScore(0, 0, 0); !closeTo(got, 0) {
		t.Errorf("no activity should score 0, got %v", got)
	}

	// 4*0.5 + 2*2.0 + 10*0.2 = 8, normalized by 20.
	if got := book.DemandScore(4, 2, 10); !closeTo(got, 0.4) {
		t.Errorf("DemandScore(4, 2, 10) = %v, want 0.4", got)
	}

	// Heavy demand saturates at 1.
	if got := book.DemandScore(100, 50, 0); !closeTo(got, 1) {
		t.Errorf("score should cap at 1, got %v", got)
	}
}

func TestRarityScore(t *testing.T) {
	if got := book.RarityScore(1); !closeTo(got, 1) {
		t.Errorf("single copy should score 1, got %v", got)
	}
	if got := book.RarityScore(4); !closeTo(got, 0.25) {
		t.Errorf("RarityScore(4) = %v, want 0.25", got)
	}
	// Zero copies cannot happen for an existing book, but the score
	// must not divide by zero.
	if got := book.RarityScore(0); !closeTo(got, 1) {
		t.Errorf("RarityScore(0) = %v, want 1", got)
	}
}

func TestSuggestedValue(t *testing.T) {
	cases := []struct {
		name      string
		condition book.Condition
		demand    float64
		rarity    float64
		want      int
	}{
		{"unique good copy, no demand", book.ConditionGood, 0, 1, 14},     // 12*0.8*1.5
		{"hot poor copy", book.ConditionPoor, 1, 1, 4},                    // 5*0.4*2
		{"excellent, mild demand", book.ConditionExcellent, 0.4, 0.25, 20}, // 15*1.0*1.325
		{"unknown condition baseline", book.Condition("odd"), 0, 0, 6},    // 10*0.6*1
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := book.SuggestedValue(tc.condition, tc.demand, tc.rarity); got != tc.want {
				t.Errorf("SuggestedValue = %d, want %d", got, tc.want)
			}
		})
	}
}

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}
