package salary

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		low  float64
		high float64
		none bool
	}{
		{
			name: "thousands range",
			text: "compensation: $125K-$150K plus equity",
			low:  125000,
			high: 150000,
		},
		{
			name: "mixed range",
			text: "base pay $150,000 - $350K",
			low:  150000,
			high: 350000,
		},
		{
			name: "range with cents",
			text: "$120,500.50 - $140,000.00 per year",
			low:  120500.50,
			high: 140000,
		},
		{
			name: "single thousands figure",
			text: "we pay up to $150K for this role",
			low:  150000,
			high: 150000,
		},
		{
			name: "single dollar figure",
			text: "salary is $150,000.00",
			low:  150000,
			high: 150000,
		},
		{
			name: "hourly range annualized",
			text: "pays $89.04 to $99.04/hour",
			low:  89.04 * 40 * 52,
			high: 99.04 * 40 * 52,
		},
		{
			name: "small figure treated as thousands",
			text: "around $85 depending on experience",
			low:  85000,
			high: 85000,
		},
		{
			name: "retirement plan is not a salary",
			text: "this mentions a 401K plan",
			none: true,
		},
		{
			name: "dollar range next to a 401K mention",
			text: "401K matching, salary $90K - $110K",
			low:  90000,
			high: 110000,
		},
		{
			name: "no salary at all",
			text: "a great team and free snacks",
			none: true,
		},
		{
			name: "empty text",
			text: "",
			none: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			low, high := Parse(tt.text)

			if tt.none {
				if low != nil || high != nil {
					t.Fatalf("expected no bounds, got %v, %v", low, high)
				}
				return
			}

			if low == nil || high == nil {
				t.Fatalf("expected bounds, got %v, %v", low, high)
			}
			if *low != tt.low {
				t.Errorf("low: expected %v, got %v", tt.low, *low)
			}
			if *high != tt.high {
				t.Errorf("high: expected %v, got %v", tt.high, *high)
			}
			if *low > *high {
				t.Errorf("low %v exceeds high %v", *low, *high)
			}
		})
	}
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	const text = "between $110K and $95,000.00 - $130,000.00 total"
	low1, high1 := Parse(text)
	low2, high2 := Parse(text)

	if *low1 != *low2 || *high1 != *high2 {
		t.Fatalf("identical input produced different bounds: (%v,%v) vs (%v,%v)",
			*low1, *high1, *low2, *high2)
	}
}
