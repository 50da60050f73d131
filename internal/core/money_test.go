package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"0", 0, true},
		{"99,90", 9990, true},
		{"-1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1.٣", 0, false}, // non-ASCII digit
		{"١٢", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestReais(t *testing.T) {
	if got := Reais(99.90); got.Cents != 9990 {
		t.Fatalf("Reais(99.90) = %d", got.Cents)
	}
	if got := Reais(2999.90); got.Cents != 299990 {
		t.Fatalf("Reais(2999.90) = %d", got.Cents)
	}
}

func TestMoneyTimes(t *testing.T) {
	cases := []struct {
		unit int64
		qty  float64
		want int64
	}{
		{8000, 20, 160000},
		{1999, 2.5, 4998}, // 4997.5 rounds away from zero
		{333, 0.1, 33},
		{100, 0, 0},
	}
	for _, tc := range cases {
		if got := Cents(tc.unit).Times(tc.qty); got.Cents != tc.want {
			t.Errorf("%d x %v = %d, want %d", tc.unit, tc.qty, got.Cents, tc.want)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	for cents, want := range map[int64]string{9990: `{"v":99.9}`, 150000: `{"v":1500}`, 0: `{"v":0}`, 5: `{"v":0.05}`} {
		b, err := json.Marshal(struct {
			V Money `json:"v"`
		}{Cents(cents)})
		if err != nil {
			t.Fatal(err)
		}
		if string(b) != want {
			t.Fatalf("%d cents encoded as %s, want %s", cents, b, want)
		}
	}

	var out struct {
		V Money `json:"v"`
	}
	for in, want := range map[string]int64{
		`{"v":99.90}`:               9990,
		`{"v":99.9}`:                9990,
		`{"v":1500}`:                150000,
		`{"v":0.30000000000000004}`: 30,
		`{"v":1e2}`:                 10000,
		`{"v":null}`:                0,
	} {
		out.V = Money{}
		if err := json.Unmarshal([]byte(in), &out); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if out.V.Cents != want {
			t.Fatalf("%s decoded to %d, want %d", in, out.V.Cents, want)
		}
	}
	for _, in := range []string{`{"v":"abc"}`, `{"v":12.345}`, `{"v":0.001}`} {
		if err := json.Unmarshal([]byte(in), &out); err == nil {
			t.Fatalf("expected error for %s", in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := Reais(1500).String(); got != "R$1.500,00" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 8, 15)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-08-15"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip mismatch: %v", back)
	}
	var zero Date
	if err := json.Unmarshal([]byte(`""`), &zero); err != nil || !zero.IsZero() {
		t.Fatalf("empty string should decode to zero date, got %v (%v)", zero, err)
	}
	if err := json.Unmarshal([]byte(`"15/08/2024"`), &zero); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
