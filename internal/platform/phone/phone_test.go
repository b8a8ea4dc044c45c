package phone

import (
	"errors"
	"testing"
)

func TestToE164(t *testing.T) {
	n := NewNormalizer("US", "GH")

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "already_e164_passes_through",
			raw:  "+14155552671",
			want: "+14155552671",
		},
		{
			name: "e164_with_spacing",
			raw:  " +1 415 555 2671 ",
			want: "+14155552671",
		},
		{
			name: "trunk_zero_uses_trunk_region",
			raw:  "0244123456",
			want: "+233244123456",
		},
		{
			name: "trunk_zero_with_separators",
			raw:  "024 412 3456",
			want: "+233244123456",
		},
		{
			name: "bare_national_uses_default_region",
			raw:  "4155552671",
			want: "+14155552671",
		},
		{
			name: "foreign_e164_keeps_its_country",
			raw:  "+233244123456",
			want: "+233244123456",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.ToE164(tc.raw)
			if err != nil {
				t.Fatalf("ToE164(%q) error: %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ToE164(%q)=%q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestToE164Invalid(t *testing.T) {
	n := NewNormalizer("US", "GH")

	invalid := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace_only", raw: "   "},
		{name: "too_short", raw: "123"},
		{name: "letters", raw: "call me maybe"},
		{name: "overlong_digits", raw: "+1999999999999999999"},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.ToE164(tc.raw)
			if !errors.Is(err, ErrInvalidPhoneNumber) {
				t.Fatalf("ToE164(%q)=(%q, %v), want ErrInvalidPhoneNumber", tc.raw, got, err)
			}
		})
	}
}

func TestNewNormalizerDefaults(t *testing.T) {
	n := NewNormalizer("", " ")
	if n.DefaultRegion != "US" || n.TrunkRegion != "GH" {
		t.Fatalf("NewNormalizer defaults = %q/%q, want US/GH", n.DefaultRegion, n.TrunkRegion)
	}
}
