package phone

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhoneNumber marks numbers that cannot be parsed or are not valid
// for their region. Callers treat it as a non-retryable input error.
var ErrInvalidPhoneNumber = errors.New("invalid phone number")

type Normalizer struct {
	// DefaultRegion is assumed for bare national numbers ("6285550100").
	DefaultRegion string
	// TrunkRegion is assumed for numbers written with a leading national
	// trunk zero ("0555123456"), the common local format on the guest list.
	TrunkRegion string
}

func NewNormalizer(defaultRegion, trunkRegion string) *Normalizer {
	if strings.TrimSpace(defaultRegion) == "" {
		defaultRegion = "US"
	}
	if strings.TrimSpace(trunkRegion) == "" {
		trunkRegion = "GH"
	}
	return &Normalizer{DefaultRegion: defaultRegion, TrunkRegion: trunkRegion}
}

// ToE164 normalizes a raw phone number into E.164 form ("+16285550100").
func (n *Normalizer) ToE164(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty input", ErrInvalidPhoneNumber)
	}

	var (
		parsed *phonenumbers.PhoneNumber
		err    error
	)
	switch {
	case strings.HasPrefix(raw, "+"):
		parsed, err = phonenumbers.Parse(raw, "")
	case strings.HasPrefix(raw, "0"):
		parsed, err = phonenumbers.Parse(raw, n.TrunkRegion)
	default:
		parsed, err = phonenumbers.Parse(raw, n.DefaultRegion)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPhoneNumber, raw, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, raw)
	}
	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}
