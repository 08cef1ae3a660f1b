package observer

import "testing"

func TestCostCalculatorKnownModel(t *testing.T) {
	c := NewCostCalculator(nil)
	// gpt-4o: $2.50 in / $10.00 out per million.
	got := c.Calculate("gpt-4o", 1_000_000, 500_000)
	want := 2.50 + 5.00
	if got != want {
		t.Errorf("Calculate = %v, want %v", got, want)
	}
}

func TestCostCalculatorUnknownModel(t *testing.T) {
	c := NewCostCalculator(nil)
	if got := c.Calculate("no-such-model", 1000, 1000); got != 0.0 {
		t.Errorf("Calculate for unknown model = %v, want 0", got)
	}
}

func TestCostCalculatorOverrides(t *testing.T) {
	c := NewCostCalculator(map[string]ModelPricing{
		"gpt-4o":  {1.00, 2.00},
		"private": {5.00, 5.00},
	})
	if got := c.Calculate("gpt-4o", 1_000_000, 1_000_000); got != 3.00 {
		t.Errorf("overridden pricing = %v, want 3.00", got)
	}
	if got := c.Calculate("private", 2_000_000, 0); got != 10.00 {
		t.Errorf("custom model pricing = %v, want 10.00", got)
	}
}
