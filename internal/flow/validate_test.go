package flow

import (
	"strings"
	"testing"
)

func TestAmount(t *testing.T) {
	if _, err := Amount("1500,50"); err != nil {
		t.Fatalf("valid amount rejected: %v", err)
	}
	for _, in := range []string{"", "0", "-1", "1.999", "ten", "99999999999"} {
		_, err := Amount(in)
		if err == nil {
			t.Fatalf("Amount(%q) should fail", in)
		}
		if !IsValidation(err) {
			t.Fatalf("Amount(%q) error should be a ValidationError, got %T", in, err)
		}
	}
}

func TestDescription(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  groceries ", "groceries", true},
		{"line one\nline two\ttab", "line one\nline two\ttab", true},
		{"   ", "", false},
		{"bell\a", "", false},
		{strings.Repeat("a", MaxDescription), strings.Repeat("a", MaxDescription), true},
		{strings.Repeat("a", MaxDescription+1), "", false},
		{strings.Repeat("я", MaxDescription), strings.Repeat("я", MaxDescription), true},
	}
	for _, tc := range cases {
		got, err := Description(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("Description(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("Description(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFamilyName(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"Ivanov Household", true},
		{"", false},
		{"   ", false},
		{strings.Repeat("x", 100), true},
		{strings.Repeat("x", 101), false},
		{"two\nlines", false},
	}
	for _, tc := range cases {
		if _, err := FamilyName(tc.in); tc.ok != (err == nil) {
			t.Fatalf("FamilyName(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
		}
	}
}

func TestInviteCode(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"AB12CD34", "AB12CD34", true},
		{" ab12cd34 ", "AB12CD34", true},
		{"AB12CD3", "", false},
		{"AB12CD345", "", false},
		{"AB12-D34", "", false},
		{"АБ12CD34", "", false},
	}
	for _, tc := range cases {
		got, err := InviteCode(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("InviteCode(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("InviteCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSummaryTime(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"09:00", "09:00", true},
		{"9:05", "09:05", true},
		{"23:59", "23:59", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"noon", "", false},
	}
	for _, tc := range cases {
		got, err := SummaryTime(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("SummaryTime(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if got != tc.want {
			t.Fatalf("SummaryTime(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTimezone(t *testing.T) {
	if _, err := Timezone("Europe/Berlin"); err != nil {
		t.Fatalf("valid timezone rejected: %v", err)
	}
	for _, in := range []string{"", "Local", "Mars/Olympus"} {
		if _, err := Timezone(in); err == nil {
			t.Fatalf("Timezone(%q) should fail", in)
		}
	}
}

func TestStateNames(t *testing.T) {
	states := []State{
		CreateFamily{}, JoinFamily{}, RenameFamily{}, AddTransaction{Kind: "expense"},
		AddCategory{}, EditCategory{}, SettingsEdit{}, Search{}, StatsRange{},
		AddTemplate{}, AdminSearch{},
	}
	seen := map[string]bool{}
	for _, s := range states {
		if s.Name() == "" || seen[s.Name()] {
			t.Fatalf("state %T has empty or duplicate name %q", s, s.Name())
		}
		seen[s.Name()] = true
	}
}
