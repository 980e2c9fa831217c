// SPDX-License-Identifier: MPL-2.0

package hostversion

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

func TestNewRange_RejectsInverted(t *testing.T) {
	t.Parallel()

	_, err := NewRange("1.20.0", "1.19.0")
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("NewRange error = %v, want ErrInvalidRange", err)
	}
}

func TestParseRange(t *testing.T) {
	t.Parallel()

	r, err := ParseRange("1.19..1.19.2")
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	if r.String() != "[1.19.0, 1.19.2]" {
		t.Errorf("String() = %q", r.String())
	}

	exact, err := ParseRange("1.18.2")
	if err != nil {
		t.Fatalf("ParseRange exact: %v", err)
	}
	if !exact.Contains(MustParse("1.18.2")) || exact.Contains(MustParse("1.18.1")) {
		t.Errorf("exact range %s has wrong membership", exact)
	}

	if _, err := ParseRange("..1.0.0"); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("ParseRange(..1.0.0) error = %v, want ErrInvalidRange", err)
	}
}

func TestRange_ContainsBoundsInclusive(t *testing.T) {
	t.Parallel()

	r := MustRange("1.19.0", "1.19.2")
	for _, in := range []string{"1.19.0", "1.19.1", "1.19.2"} {
		if !r.Contains(MustParse(in)) {
			t.Errorf("%s should contain %s", r, in)
		}
	}
	for _, out := range []string{"1.18.2", "1.19.3", "1.20.0"} {
		if r.Contains(MustParse(out)) {
			t.Errorf("%s should not contain %s", r, out)
		}
	}
}

func TestRange_Overlaps(t *testing.T) {
	t.Parallel()

	a := MustRange("1.19.0", "1.19.2")
	tests := []struct {
		b    Range
		want bool
	}{
		{MustRange("1.19.2", "1.19.3"), true},
		{MustRange("1.19.3", "1.19.4"), false},
		{MustRange("1.18.0", "1.20.0"), true},
		{MustRange("1.18.0", "1.18.2"), false},
	}
	for _, tt := range tests {
		if got := a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s.Overlaps(%s) = %v, want %v", a, tt.b, got, tt.want)
		}
		if got := tt.b.Overlaps(a); got != tt.want {
			t.Errorf("%s.Overlaps(%s) = %v, want %v (symmetry)", tt.b, a, got, tt.want)
		}
	}
}

func TestRange_NarrowerThan(t *testing.T) {
	t.Parallel()

	wide := MustRange("1.19.0", "1.20.6")
	narrow := MustRange("1.19.2", "1.19.3")
	if !narrow.NarrowerThan(wide) {
		t.Errorf("%s should be narrower than %s", narrow, wide)
	}
	if wide.NarrowerThan(narrow) {
		t.Errorf("%s should not be narrower than %s", wide, narrow)
	}
	if narrow.NarrowerThan(narrow) {
		t.Errorf("a range must not be narrower than itself")
	}
}

func genVersion() *rapid.Generator[Version] {
	return rapid.Custom(func(t *rapid.T) Version {
		major := rapid.IntRange(0, 3).Draw(t, "major")
		minor := rapid.IntRange(0, 25).Draw(t, "minor")
		patch := rapid.IntRange(0, 6).Draw(t, "patch")
		return MustParse(fmtVersion(major, minor, patch))
	})
}

func TestRange_OverlapsMatchesMembership(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a1, a2 := genVersion().Draw(t, "a1"), genVersion().Draw(t, "a2")
		b1, b2 := genVersion().Draw(t, "b1"), genVersion().Draw(t, "b2")
		a := ordered(a1, a2)
		b := ordered(b1, b2)

		probe := genVersion().Draw(t, "probe")
		if a.Contains(probe) && b.Contains(probe) && !a.Overlaps(b) {
			t.Fatalf("%s and %s both contain %s but Overlaps is false", a, b, probe)
		}
		if a.Overlaps(b) != b.Overlaps(a) {
			t.Fatalf("Overlaps is not symmetric for %s and %s", a, b)
		}
	})
}

func ordered(x, y Version) Range {
	if x.Compare(y) > 0 {
		x, y = y, x
	}
	return Range{Min: x, Max: y}
}

func fmtVersion(major, minor, patch int) string {
	return fmt.Sprintf("%d.%d.%d", major, minor, patch)
}
