package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/platform/phone"
	"github.com/boakyeni/nanas-wedding-backend/internal/services"
)

type DispatchHandler struct {
	log             *logger.Logger
	dispatchService services.DispatchService
}

func NewDispatchHandler(log *logger.Logger, dispatchService services.DispatchService) *DispatchHandler {
	return &DispatchHandler{
		log:             log.With("handler", "DispatchHandler"),
		dispatchService: dispatchService,
	}
}

// SendConfirmations handles POST /guests/:id/confirmations.
func (dh *DispatchHandler) SendConfirmations(c *gin.Context) {
	guestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_guest_id", err)
		return
	}

	var req services.DispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}

	result, err := dh.dispatchService.DispatchConfirmations(c.Request.Context(), guestID, req)
	if err != nil {
		dh.respondDispatchError(c, guestID, err)
		return
	}
	RespondOK(c, result)
}

func (dh *DispatchHandler) respondDispatchError(c *gin.Context, guestID uuid.UUID, err error) {
	var missingPayload *services.MissingPayloadError
	var delivery *services.DeliveryError

	switch {
	case errors.Is(err, services.ErrGuestNotFound):
		RespondError(c, http.StatusNotFound, "guest_not_found", err)
	case errors.Is(err, services.ErrContactUpdateFailed):
		RespondError(c, http.StatusConflict, "contact_update_failed", err)
	case errors.As(err, &missingPayload):
		RespondError(c, http.StatusBadRequest, "missing_payload", err)
	case errors.Is(err, phone.ErrInvalidPhoneNumber):
		RespondError(c, http.StatusBadRequest, "invalid_phone_number", err)
	case errors.Is(err, services.ErrLockTimeout):
		RespondError(c, http.StatusServiceUnavailable, "lock_timeout", err)
	case errors.As(err, &delivery):
		dh.log.Warn("Confirmation delivery failed",
			"guest_id", guestID.String(),
			"channel", delivery.Channel,
			"error", err,
		)
		RespondError(c, http.StatusBadGateway, delivery.Channel+"_delivery_failed", err)
	default:
		dh.log.Error("Dispatch failed", "guest_id", guestID.String(), "error", err)
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
