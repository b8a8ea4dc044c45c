package services

import (
	"github.com/boakyeni/nanas-wedding-backend/internal/types"
)

// CountSeats sums reserved seats over a set of party members: one per
// attending member plus one for an attending member's plus-one. Members who
// declined or have not answered contribute nothing. Pure; callers are
// responsible for passing a transactionally consistent member set.
func CountSeats(members []*types.Guest) int {
	seats := 0
	for _, m := range members {
		if m == nil || m.Attending == nil || !*m.Attending {
			continue
		}
		seats++
		if m.PlusOne {
			seats++
		}
	}
	return seats
}
