package money

import "testing"

func TestEqual_DifferentScale(t *testing.T) {
	a, _ := Parse("100.10")
	b, _ := Parse("100.100000")
	if !Equal(a, b) {
		t.Fatal("amounts should be numerically equal")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse("12,50"); err == nil {
		t.Fatal("expected error for malformed amount")
	}
}

func TestRoundingModes(t *testing.T) {
	cases := []struct {
		mode RoundingMode
		in   string
		want string
	}{
		{RoundTruncate, "26.991", "26.99"},
		{RoundTruncate, "26.999", "26.99"},
		{RoundHalfUp, "26.995", "27"},
		{RoundHalfUp, "26.994", "26.99"},
		{RoundHalfEven, "0.125", "0.12"},
		{RoundHalfEven, "0.135", "0.14"},
	}

	for _, tc := range cases {
		got := Rounding{Scale: 2, Mode: tc.mode}.Apply(MustParse(tc.in))
		if !Equal(got, MustParse(tc.want)) {
			t.Fatalf("%s(%s): expected %s, got %s", tc.mode, tc.in, tc.want, got)
		}
	}
}

func TestParseRoundingMode(t *testing.T) {
	mode, err := ParseRoundingMode("HALF_EVEN")
	if err != nil || mode != RoundHalfEven {
		t.Fatalf("expected half_even, got %q (%v)", mode, err)
	}

	mode, err = ParseRoundingMode("")
	if err != nil || mode != RoundTruncate {
		t.Fatalf("expected truncate default, got %q (%v)", mode, err)
	}

	if _, err := ParseRoundingMode("ceil"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestFloorZero(t *testing.T) {
	if !FloorZero(MustParse("-1.50")).IsZero() {
		t.Fatal("negative amount should clamp to zero")
	}
	if !Equal(FloorZero(MustParse("3.10")), MustParse("3.1")) {
		t.Fatal("positive amount should pass through")
	}
}
