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

type GuestHandler struct {
	log          *logger.Logger
	guestService services.GuestService
}

func NewGuestHandler(log *logger.Logger, guestService services.GuestService) *GuestHandler {
	return &GuestHandler{
		log:          log.With("handler", "GuestHandler"),
		guestService: guestService,
	}
}

func (gh *GuestHandler) Create(c *gin.Context) {
	var input services.CreateGuestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	guest, err := gh.guestService.CreateGuest(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, phone.ErrInvalidPhoneNumber) {
			RespondError(c, http.StatusBadRequest, "invalid_phone_number", err)
			return
		}
		RespondError(c, http.StatusBadRequest, "create_guest_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"guest": guest})
}

func (gh *GuestHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_guest_id", err)
		return
	}
	guest, err := gh.guestService.GetGuest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			RespondError(c, http.StatusNotFound, "guest_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"guest": guest})
}

func (gh *GuestHandler) List(c *gin.Context) {
	guests, err := gh.guestService.ListGuests(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"guests": guests})
}

func (gh *GuestHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_guest_id", err)
		return
	}
	var input services.UpdateGuestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	guest, err := gh.guestService.UpdateGuest(c.Request.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGuestNotFound):
			RespondError(c, http.StatusNotFound, "guest_not_found", err)
		case errors.Is(err, phone.ErrInvalidPhoneNumber):
			RespondError(c, http.StatusBadRequest, "invalid_phone_number", err)
		case errors.Is(err, services.ErrLockTimeout):
			RespondError(c, http.StatusServiceUnavailable, "lock_timeout", err)
		default:
			RespondError(c, http.StatusBadRequest, "update_guest_failed", err)
		}
		return
	}
	RespondOK(c, gin.H{"guest": guest})
}

func (gh *GuestHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_guest_id", err)
		return
	}
	if err := gh.guestService.DeleteGuest(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrGuestNotFound) {
			RespondError(c, http.StatusNotFound, "guest_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (gh *GuestHandler) ExportCSV(c *gin.Context) {
	data, err := gh.guestService.ExportGuestsCSV(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="guests.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
