package services

import (
	"testing"

	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

func boolPtr(b bool) *bool { return &b }

func TestCountSeats(t *testing.T) {
	cases := []struct {
		name    string
		members []*types.Guest
		want    int
	}{
		{
			name:    "empty_party",
			members: nil,
			want:    0,
		},
		{
			name: "single_attending_no_plus_one",
			members: []*types.Guest{
				{Attending: boolPtr(true)},
			},
			want: 1,
		},
		{
			name: "single_attending_with_plus_one",
			members: []*types.Guest{
				{Attending: boolPtr(true), PlusOne: true},
			},
			want: 2,
		},
		{
			name: "declined_with_plus_one_counts_nothing",
			members: []*types.Guest{
				{Attending: boolPtr(false), PlusOne: true},
			},
			want: 0,
		},
		{
			name: "unanswered_counts_nothing",
			members: []*types.Guest{
				{Attending: nil, PlusOne: true},
			},
			want: 0,
		},
		{
			name: "mixed_party",
			members: []*types.Guest{
				{Attending: boolPtr(true), PlusOne: true}, // 2
				{Attending: boolPtr(true)},                // 1
				{Attending: boolPtr(false), PlusOne: true},
				{Attending: nil},
			},
			want: 3,
		},
		{
			name: "nil_member_is_skipped",
			members: []*types.Guest{
				nil,
				{Attending: boolPtr(true)},
			},
			want: 1,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CountSeats(tc.members)
			if got != tc.want {
				t.Fatalf("CountSeats()=%d, want %d", got, tc.want)
			}
		})
	}
}
