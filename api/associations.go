package api

import (
	"net/http"
	"time"

	"backend_telearenda/middleware"
	"backend_telearenda/models"
	"backend_telearenda/services"

	"github.com/gin-gonic/gin"
)

var (
	associationService *services.AssociationService
	groupingService    *services.GroupingService
	bulkService        *services.BulkService
)

// InitAssociationAPI подключает сервисы к обработчикам привязок
func InitAssociationAPI(as *services.AssociationService, gs *services.GroupingService, bs *services.BulkService) {
	associationService = as
	groupingService = gs
	bulkService = bs
}

// GetAssociations возвращает сгруппированное представление привязок
func GetAssociations(c *gin.Context) {
	page, limit := ParsePagination(c)

	view, err := groupingService.GetGroupedView(services.AssociationFilter{
		Page:     page,
		PageSize: limit,
		Search:   c.Query("search"),
	})
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   view,
	})
}

type createAssociationRequest struct {
	AssetID           uint                 `json:"asset_id" binding:"required"`
	ClientID          uint                 `json:"client_id" binding:"required"`
	Kind              string               `json:"kind" binding:"required"`
	SubscriptionStart *models.CalendarDate `json:"subscription_start"`
	SubscriptionEnd   *models.CalendarDate `json:"subscription_end"`
}

func (r *createAssociationRequest) subscriptionInfo() *services.SubscriptionInfo {
	if r.SubscriptionStart == nil && r.SubscriptionEnd == nil {
		return nil
	}
	sub := &services.SubscriptionInfo{}
	if r.SubscriptionStart != nil {
		sub.StartDate = *r.SubscriptionStart
	}
	if r.SubscriptionEnd != nil {
		sub.EndDate = *r.SubscriptionEnd
	}
	return sub
}

// CreateAssociation создает одну привязку актива к клиенту
func CreateAssociation(c *gin.Context) {
	var req createAssociationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	result, err := associationService.Associate(req.AssetID, req.ClientID, req.Kind,
		req.subscriptionInfo(), middleware.GetCurrentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   result,
	})
}

type createBatchRequest struct {
	AssetIDs          []uint               `json:"asset_ids" binding:"required"`
	ClientID          uint                 `json:"client_id" binding:"required"`
	Kind              string               `json:"kind" binding:"required"`
	SubscriptionStart *models.CalendarDate `json:"subscription_start"`
	SubscriptionEnd   *models.CalendarDate `json:"subscription_end"`
}

// CreateAssociationBatch создает несколько привязок одной партией:
// все строки получают общее время создания и образуют одну группу
func CreateAssociationBatch(c *gin.Context) {
	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	var sub *services.SubscriptionInfo
	if req.SubscriptionStart != nil || req.SubscriptionEnd != nil {
		sub = &services.SubscriptionInfo{}
		if req.SubscriptionStart != nil {
			sub.StartDate = *req.SubscriptionStart
		}
		if req.SubscriptionEnd != nil {
			sub.EndDate = *req.SubscriptionEnd
		}
	}

	results, err := associationService.AssociateBatch(req.AssetIDs, req.ClientID, req.Kind,
		sub, middleware.GetCurrentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   results,
		"count":  len(results),
	})
}

// EndAssociation завершает привязку: дата выхода сегодня, актив
// возвращается в статус "available". Повторное завершение - no-op
func EndAssociation(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := associationService.End(id, middleware.GetCurrentUserID(c))
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   result,
	})
}

type bulkEndGroupRequest struct {
	CreatedAt time.Time `json:"created_at" binding:"required"`
	ClientID  uint      `json:"client_id" binding:"required"`
}

// BulkEndGroup завершает активные привязки группы компании: партия
// адресуется временем создания, группа внутри нее - клиентом
func BulkEndGroup(c *gin.Context) {
	var req bulkEndGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	result, err := bulkService.EndGroup(c.Request.Context(), req.CreatedAt, req.ClientID,
		middleware.GetCurrentUserID(c), nil)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   result,
	})
}

type bulkEditRequest struct {
	AssociationIDs []uint                 `json:"association_ids" binding:"required"`
	Patch          services.BulkEditPatch `json:"patch"`
}

// BulkEdit применяет общие изменения к набору привязок
func BulkEdit(c *gin.Context) {
	var req bulkEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	result, err := bulkService.BulkEdit(c.Request.Context(), req.AssociationIDs, req.Patch,
		middleware.GetCurrentUserID(c), nil)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   result,
	})
}

type bulkChangeKindRequest struct {
	AssociationIDs []uint `json:"association_ids" binding:"required"`
	NewKind        string `json:"new_kind" binding:"required"`
}

// BulkChangeKind меняет тип набора привязок
func BulkChangeKind(c *gin.Context) {
	var req bulkChangeKindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	result, err := bulkService.ChangeAssociationType(c.Request.Context(), req.AssociationIDs,
		req.NewKind, middleware.GetCurrentUserID(c), nil)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   result,
	})
}

type bulkSoftDeleteRequest struct {
	AssociationIDs []uint `json:"association_ids" binding:"required"`
}

// BulkSoftDelete мягко удаляет набор привязок из представления
func BulkSoftDelete(c *gin.Context) {
	var req bulkSoftDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"error":  "Неверный формат данных",
		})
		return
	}

	result, err := bulkService.SoftDeleteGroup(c.Request.Context(), req.AssociationIDs,
		middleware.GetCurrentUserID(c), nil)
	if err != nil {
		RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   result,
	})
}
