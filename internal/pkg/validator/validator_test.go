package validator

import (
	"testing"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestCanonicalEmployeeID(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"emp001", "EMP001"},
		{"  EMP001  ", "EMP001"},
		{"Emp-042", "EMP-042"},
		{"", ""},
	}
	for _, c := range cases {
		got := CanonicalEmployeeID(c.input)
		if got != c.want {
			t.Errorf("CanonicalEmployeeID(%q) = %q, want %q", c.input, got, c.want)
		}
	}
}

func TestIsValidEmployeeID(t *testing.T) {
	valid := []string{"EMP001", "EMP-042", "A1B2C3"}
	invalid := []string{"", "AB", "emp001", "EMP 001", "EMP001EMP001EMP001EMP001EMP001EMP001EMP001EMP001001"}
	for _, id := range valid {
		if !IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = false, want true", id)
		}
	}
	for _, id := range invalid {
		if IsValidEmployeeID(id) {
			t.Errorf("IsValidEmployeeID(%q) = true, want false", id)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	if _, ok := IsValidDate("2025-01-07"); !ok {
		t.Errorf("IsValidDate(%q) = false, want true", "2025-01-07")
	}
	for _, s := range []string{"2025-13-01", "07-01-2025", "", "today"} {
		if _, ok := IsValidDate(s); ok {
			t.Errorf("IsValidDate(%q) = true, want false", s)
		}
	}
}

func TestIsValidTimezone(t *testing.T) {
	valid := []string{"UTC", "Asia/Kolkata", "America/New_York"}
	invalid := []string{"", "Not/AZone", "GMT+5:30ish"}
	for _, tz := range valid {
		if !IsValidTimezone(tz) {
			t.Errorf("IsValidTimezone(%q) = false, want true", tz)
		}
	}
	for _, tz := range invalid {
		if IsValidTimezone(tz) {
			t.Errorf("IsValidTimezone(%q) = true, want false", tz)
		}
	}
}
