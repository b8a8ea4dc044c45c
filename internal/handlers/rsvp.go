package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/phone"
	"github.com/boakyeni/nanas-wedding-backend/internal/services"
)

type RSVPHandler struct {
	log          *logger.Logger
	guestService services.GuestService
}

func NewRSVPHandler(log *logger.Logger, guestService services.GuestService) *RSVPHandler {
	return &RSVPHandler{
		log:          log.With("handler", "RSVPHandler"),
		guestService: guestService,
	}
}

// rsvpRequest mirrors the public RSVP form. Attending arrives as a bool or
// as a "yes"/"no"/"true"/"false" string depending on the form client.
type rsvpRequest struct {
	Name                string      `json:"name"`
	Email               string      `json:"email"`
	Phone               string      `json:"phone,omitempty"`
	Attending           interface{} `json:"attending"`
	PlusOne             bool        `json:"plusOne,omitempty"`
	PlusOneName         string      `json:"plusOneName,omitempty"`
	DietaryRestrictions string      `json:"dietaryRestrictions,omitempty"`
	Message             string      `json:"message,omitempty"`
}

// Submit handles POST /rsvp.
func (rh *RSVPHandler) Submit(c *gin.Context) {
	var req rsvpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		RespondError(c, http.StatusBadRequest, "missing_field", fmt.Errorf("missing required field: name"))
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		RespondError(c, http.StatusBadRequest, "missing_field", fmt.Errorf("missing required field: email"))
		return
	}
	attending, err := coerceAttending(req.Attending)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_field", err)
		return
	}

	first, last := splitName(req.Name)
	input := services.CreateGuestInput{
		FirstName:           first,
		LastName:            last,
		Attending:           &attending,
		PlusOne:             req.PlusOne,
		PlusOneName:         req.PlusOneName,
		DietaryRestrictions: req.DietaryRestrictions,
		Message:             req.Message,
	}
	email := strings.TrimSpace(req.Email)
	input.Email = &email
	if p := strings.TrimSpace(req.Phone); p != "" {
		input.Phone = &p
	}

	guest, err := rh.guestService.CreateGuest(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, phone.ErrInvalidPhoneNumber) {
			RespondError(c, http.StatusBadRequest, "invalid_phone_number", err)
			return
		}
		rh.log.Error("RSVP submit failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("an error occurred processing your RSVP"))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "id": guest.ID})
}

func coerceAttending(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "yes" || s == "true", nil
	case nil:
		return false, fmt.Errorf("missing required field: attending")
	default:
		return false, fmt.Errorf("invalid value for field: attending")
	}
}

func splitName(full string) (first, last string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
