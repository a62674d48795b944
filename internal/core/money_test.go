package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"200", 20000, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"abc", 0, true},
		{"", 0, true},
		{"1.2.3", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestMoneyFromFloat(t *testing.T) {
	if m := MoneyFromFloat(12.345); m.Cents != 1235 {
		t.Fatalf("expected 1235, got %d", m.Cents)
	}
	if m := MoneyFromFloat(700); m.Cents != 70000 {
		t.Fatalf("expected 70000, got %d", m.Cents)
	}
}

func TestRounding(t *testing.T) {
	if got := Round2(83.33333); got != 83.33 {
		t.Fatalf("Round2: got %v", got)
	}
	if got := Round4(0.011994); got != 0.012 {
		t.Fatalf("Round4: got %v", got)
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		code string
		m    Money
		want string
	}{
		{"INR", Money{Cents: 70000}, "₹700"},
		{"USD", Money{Cents: 1250}, "$12.50"},
		{"CHF", Money{Cents: 500}, "CHF 5"},
	}
	for _, tc := range cases {
		if got := FormatAmount(tc.code, tc.m); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.code, tc.want, got)
		}
	}
}
