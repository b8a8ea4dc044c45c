package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/boakyeni/nanas-wedding-backend/internal/platform/logger"
	"github.com/boakyeni/nanas-wedding-backend/internal/services"
)

type PartyHandler struct {
	log          *logger.Logger
	partyService services.PartyService
}

func NewPartyHandler(log *logger.Logger, partyService services.PartyService) *PartyHandler {
	return &PartyHandler{
		log:          log.With("handler", "PartyHandler"),
		partyService: partyService,
	}
}

func (ph *PartyHandler) Create(c *gin.Context) {
	var input services.CreatePartyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	party, err := ph.partyService.CreateParty(c.Request.Context(), input)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "create_party_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"party": party})
}

func (ph *PartyHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_party_id", err)
		return
	}
	party, err := ph.partyService.GetParty(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPartyNotFound) {
			RespondError(c, http.StatusNotFound, "party_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"party": party})
}

func (ph *PartyHandler) List(c *gin.Context) {
	parties, err := ph.partyService.ListParties(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	RespondOK(c, gin.H{"parties": parties})
}

func (ph *PartyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_party_id", err)
		return
	}
	if err := ph.partyService.DeleteParty(c.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrPartyNotFound) {
			RespondError(c, http.StatusNotFound, "party_not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	c.Status(http.StatusNoContent)
}
