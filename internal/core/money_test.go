package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.50", true},
		{"349.99", "349.99", true},
		{"1000000", "1000000.00", true},
		{"1000000.01", "", false},
		{"-1", "", false},
		{"0", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyDivInt(t *testing.T) {
	cases := []struct {
		in  string
		n   int64
		out string
	}{
		{"120", 12, "10.00"},
		{"100", 12, "8.33"},
		{"349.99", 12, "29.17"}, // 29.165833 rounds up
		{"99.99", 3, "33.33"},
		{"50", 0, "0.00"}, // lifetime: no recurring cost
	}
	for _, tc := range cases {
		m, err := ParseAmount(tc.in)
		if err != nil {
			t.Fatalf("%q parse: %v", tc.in, err)
		}
		if got := m.DivInt(tc.n).String(); got != tc.out {
			t.Errorf("DivInt(%s, %d) = %s, want %s", tc.in, tc.n, got, tc.out)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := MoneyFromFloat(9.99).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := MoneyFromFloat(1_000_001).Validate(); err == nil {
		t.Fatalf("expected error above MaxAmount")
	}
}
