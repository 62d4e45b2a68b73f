package pipeline

import (
	"errors"
	"testing"
)

func TestNewGrid_Default(t *testing.T) {
	g, err := NewGrid(5, 20, 1, 100, 150, 5, -100, -150, -5)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}

	if len(g.Periods) != 16 || len(g.BuyThresholds) != 11 || len(g.SellThresholds) != 11 {
		t.Fatalf("unexpected grid dims %d/%d/%d", len(g.Periods), len(g.BuyThresholds), len(g.SellThresholds))
	}
	if g.Size() != 1936 {
		t.Errorf("expected 1936 combinations, got %d", g.Size())
	}
	if g.SellThresholds[0] != -100 || g.SellThresholds[10] != -150 {
		t.Errorf("unexpected sell range %v", g.SellThresholds)
	}

	combos := g.Combos()
	if len(combos) != g.Size() {
		t.Fatalf("expected %d combos, got %d", g.Size(), len(combos))
	}
	if combos[0] != (Combo{5, 100, -100}) || combos[1] != (Combo{5, 100, -105}) || combos[11] != (Combo{5, 105, -100}) {
		t.Errorf("unexpected grid order: %v %v %v", combos[0], combos[1], combos[11])
	}
}

func TestNewGrid_FractionalStep(t *testing.T) {
	g, err := NewGrid(9, 9, 1, 0, 0.3, 0.1, -1, -1, -1)
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	if len(g.BuyThresholds) != 4 {
		t.Errorf("expected 4 buy thresholds, got %v", g.BuyThresholds)
	}
}

func TestNewGrid_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args [9]float64
	}{
		{"zero period step", [9]float64{5, 20, 0, 100, 150, 5, -100, -150, -5}},
		{"inverted periods", [9]float64{20, 5, 1, 100, 150, 5, -100, -150, -5}},
		{"zero buy step", [9]float64{5, 20, 1, 100, 150, 0, -100, -150, -5}},
		{"sell step away from end", [9]float64{5, 20, 1, 100, 150, 5, -100, -150, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.args
			_, err := NewGrid(int(a[0]), int(a[1]), int(a[2]), a[3], a[4], a[5], a[6], a[7], a[8])
			if !errors.Is(err, ErrInvalidGrid) {
				t.Errorf("expected ErrInvalidGrid, got %v", err)
			}
		})
	}
}
