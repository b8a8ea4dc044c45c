package services

// GateInput is the full state the notification gate decides on. Attending
// and the already-sent flags must come from the row read under lock, never
// from caller-supplied values.
type GateInput struct {
	Attending            bool
	EmailPresent         bool
	PhonePresent         bool
	EmailAlreadySent     bool
	MessagingAlreadySent bool
	WantsEmail           bool
	WantsMessaging       bool
}

type GateDecision struct {
	SendEmail     bool
	SendMessaging bool
}

// DecideChannels applies the per-channel rule
// send = wants AND attending AND contact present AND NOT already sent.
// The already-sent check is the idempotency guarantee: once a channel's flag
// is true it can never be selected again.
func DecideChannels(in GateInput) GateDecision {
	return GateDecision{
		SendEmail:     in.WantsEmail && in.Attending && in.EmailPresent && !in.EmailAlreadySent,
		SendMessaging: in.WantsMessaging && in.Attending && in.PhonePresent && !in.MessagingAlreadySent,
	}
}
