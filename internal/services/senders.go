package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/boakyeni/nanas-wedding-backend/internal/clients/sendgrid"
	"github.com/boakyeni/nanas-wedding-backend/internal/clients/twilio"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
)

// EmailConfirmation carries the fully-resolved parameters for one email
// send. The sender itself holds no retry-across-calls or idempotency logic;
// calling it twice sends twice.
type EmailConfirmation struct {
	ToAddress    string
	GuestName    string
	Seats        int
	VenueName    string
	VenueAddress string
	MapsURL      string
	WebsiteURL   string
	GuideURL     string
}

type EmailSender interface {
	SendConfirmation(ctx context.Context, conf EmailConfirmation) error
}

// MessagingConfirmation carries the fully-resolved parameters for one
// WhatsApp-style send. PhoneE164 must already be normalized.
type MessagingConfirmation struct {
	GuestName string
	PhoneE164 string
	Attending bool
	Seats     int
	RSVPLink  string
}

type MessagingSender interface {
	SendConfirmation(ctx context.Context, conf MessagingConfirmation) (messageID string, err error)
}

func seatText(seats int) string {
	if seats == 1 {
		return "your seat"
	}
	return fmt.Sprintf("%d seats for you and your party", seats)
}

// --- SendGrid email adapter ---

type SendGridEmailSenderConfig struct {
	Subject   string
	FromEmail string
	FromName  string
	ReplyTo   string
}

func SendGridEmailSenderConfigFromEnv() SendGridEmailSenderConfig {
	return SendGridEmailSenderConfig{
		Subject:   strings.TrimSpace(os.Getenv("CONFIRMATION_EMAIL_SUBJECT")),
		FromEmail: strings.TrimSpace(os.Getenv("CONFIRMATION_FROM_EMAIL")),
		FromName:  strings.TrimSpace(os.Getenv("CONFIRMATION_FROM_NAME")),
		ReplyTo:   strings.TrimSpace(os.Getenv("CONFIRMATION_REPLY_TO")),
	}
}

type sendgridEmailSender struct {
	log    *logger.Logger
	client sendgrid.Client
	cfg    SendGridEmailSenderConfig
}

func NewSendGridEmailSender(log *logger.Logger, client sendgrid.Client, cfg SendGridEmailSenderConfig) (EmailSender, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if client == nil {
		return nil, fmt.Errorf("sendgrid client required")
	}
	if cfg.Subject == "" {
		cfg.Subject = "Your attendance is confirmed"
	}
	return &sendgridEmailSender{
		log:    log.With("sender", "SendGridEmailSender"),
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *sendgridEmailSender) SendConfirmation(ctx context.Context, conf EmailConfirmation) error {
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your attendance is confirmed. We've reserved %s.\n\n"+
			"Venue: %s\n%s\nDirections: %s\n\n"+
			"If plans change, please update your RSVP here: %s\n"+
			"Guest guide: %s\n",
		conf.GuestName, seatText(conf.Seats),
		conf.VenueName, conf.VenueAddress, conf.MapsURL,
		conf.WebsiteURL, conf.GuideURL,
	)

	req := sendgrid.SendEmailRequest{
		From:    sendgrid.EmailAddress{Email: s.cfg.FromEmail, Name: s.cfg.FromName},
		To:      []sendgrid.EmailAddress{{Email: conf.ToAddress, Name: conf.GuestName}},
		Subject: s.cfg.Subject,
		Text:    body,
		Headers: map[string]string{
			"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
			"List-Unsubscribe": fmt.Sprintf("<mailto:%s?subject=unsubscribe>, <%s/unsubscribe?email=%s>",
				s.cfg.FromEmail, strings.TrimRight(conf.WebsiteURL, "/"), conf.ToAddress),
		},
	}
	if s.cfg.ReplyTo != "" {
		req.ReplyTo = &sendgrid.EmailAddress{Email: s.cfg.ReplyTo}
	}

	res, err := s.client.Send(ctx, req)
	if err != nil {
		return err
	}
	s.log.Info("Confirmation email accepted by provider",
		"status_code", res.StatusCode,
		"provider_message_id", res.MessageID,
	)
	return nil
}

// --- Twilio WhatsApp adapter ---

type TwilioMessagingSenderConfig struct {
	// Twilio content template SIDs; which one is used depends on whether the
	// guest is attending.
	ContentSIDAttending string
	ContentSIDDecline   string
}

func TwilioMessagingSenderConfigFromEnv() TwilioMessagingSenderConfig {
	return TwilioMessagingSenderConfig{
		ContentSIDAttending: strings.TrimSpace(os.Getenv("TWILIO_CONTENT_SID_ATTENDING")),
		ContentSIDDecline:   strings.TrimSpace(os.Getenv("TWILIO_CONTENT_SID_DECLINE")),
	}
}

type twilioMessagingSender struct {
	log    *logger.Logger
	client twilio.Client
	cfg    TwilioMessagingSenderConfig
}

func NewTwilioMessagingSender(log *logger.Logger, client twilio.Client, cfg TwilioMessagingSenderConfig) (MessagingSender, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if client == nil {
		return nil, fmt.Errorf("twilio client required")
	}
	if cfg.ContentSIDAttending == "" {
		return nil, fmt.Errorf("missing TWILIO_CONTENT_SID_ATTENDING")
	}
	if cfg.ContentSIDDecline == "" {
		return nil, fmt.Errorf("missing TWILIO_CONTENT_SID_DECLINE")
	}
	return &twilioMessagingSender{
		log:    log.With("sender", "TwilioMessagingSender"),
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *twilioMessagingSender) SendConfirmation(ctx context.Context, conf MessagingConfirmation) (string, error) {
	contentSID := s.cfg.ContentSIDDecline
	contentVars := map[string]string{"1": conf.GuestName}
	if conf.Attending {
		contentSID = s.cfg.ContentSIDAttending
		contentVars["2"] = seatText(conf.Seats)
		contentVars["3"] = conf.RSVPLink
	}
	varsJSON, err := json.Marshal(contentVars)
	if err != nil {
		return "", err
	}

	msg, err := s.client.SendContentTemplate(ctx, "whatsapp:"+conf.PhoneE164, contentSID, string(varsJSON))
	if err != nil {
		return "", err
	}
	s.log.Info("Confirmation message accepted by provider",
		"provider_message_sid", msg.SID,
		"status", msg.Status,
	)
	return msg.SID, nil
}
