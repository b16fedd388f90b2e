package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"nexora/internal/services"
	"nexora/pkg/utils"
)

// OpsController exposes the admin API: ledger browsing, failed-event replay
// and billing lookups. Routes are mounted behind JWT auth with the admin role.
type OpsController struct {
	opsService services.OpsService
}

func NewOpsController(opsService services.OpsService) *OpsController {
	return &OpsController{opsService: opsService}
}

func (o *OpsController) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	entries, err := o.opsService.ListEvents(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, entries, "Events retrieved successfully")
}

func (o *OpsController) GetEvent(c *gin.Context) {
	entry, err := o.opsService.GetEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, entry, "Event retrieved successfully")
}

func (o *OpsController) ReplayEvent(c *gin.Context) {
	result, err := o.opsService.ReplayEvent(c.Request.Context(), c.Param("eventId"))
	if err != nil {
		if errors.Is(err, utils.ErrNotReplayable) {
			utils.RespondError(c, http.StatusConflict, err.Error())
			return
		}
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, result, "Event replayed")
}

func (o *OpsController) ListPlans(c *gin.Context) {
	plans, err := o.opsService.ListPlans(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, plans, "Plans retrieved successfully")
}

func (o *OpsController) GetAccountBilling(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("accountId"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid account id")
		return
	}

	billing, err := o.opsService.AccountBilling(c.Request.Context(), accountID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}
	utils.RespondSuccess(c, billing, "Billing retrieved successfully")
}
