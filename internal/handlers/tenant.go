package handlers

import (
	"time"

	"rentledger/internal/repository"
	"rentledger/internal/services"
	"rentledger/pkg/pagination"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TenantHandler struct {
	occupancy *services.OccupancyService
}

func NewTenantHandler(occupancy *services.OccupancyService) *TenantHandler {
	return &TenantHandler{occupancy: occupancy}
}

// AssignTenantRequest 租客入住请求
type AssignTenantRequest struct {
	Name             string           `json:"name" binding:"required,max=100"`
	Email            string           `json:"email" binding:"required,email,max=100"`
	PhoneNumber      string           `json:"phone_number" binding:"required,max=30"`
	IDNumber         string           `json:"id_number" binding:"max=50"`
	PropertyID       uint             `json:"property_id" binding:"required"`
	UnitNumber       string           `json:"unit_number" binding:"required,max=50"`
	LeaseStartDate   string           `json:"lease_start_date" binding:"required"`
	LeaseEndDate     string           `json:"lease_end_date" binding:"required"`
	DepositAmount    *decimal.Decimal `json:"deposit_amount"`
	EmergencyContact datatypes.JSON   `json:"emergency_contact"`
}

// EndTenancyRequest 结束租约，moved_out_at 为空时取当前时间
type EndTenancyRequest struct {
	MovedOutAt string `json:"moved_out_at"`
}

// Create 租客入住，同时占用单元
func (h *TenantHandler) Create(c *gin.Context) {
	var req AssignTenantRequest
	if !bindJSON(c, &req) {
		return
	}

	start, err := parseDate(req.LeaseStartDate)
	if err != nil {
		response.BadRequest(c, "lease_start_date: "+err.Error())
		return
	}
	end, err := parseDate(req.LeaseEndDate)
	if err != nil {
		response.BadRequest(c, "lease_end_date: "+err.Error())
		return
	}

	input := services.AssignTenantInput{
		PropertyID:       req.PropertyID,
		UnitNumber:       req.UnitNumber,
		Name:             req.Name,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		IDNumber:         req.IDNumber,
		LeaseStartDate:   start,
		LeaseEndDate:     end,
		EmergencyContact: req.EmergencyContact,
	}
	if req.DepositAmount != nil {
		input.DepositAmount = *req.DepositAmount
	}

	tenant, err := h.occupancy.AssignTenant(c.Request.Context(), input)
	if err != nil {
		response.AppError(c, err, "租客入住失败")
		return
	}
	response.SuccessWithMessage(c, "入住成功", tenant)
}

// List 租客列表，支持 property_id、status、keyword 过滤
func (h *TenantHandler) List(c *gin.Context) {
	propertyID, ok := parseOptionalUintQuery(c, "property_id")
	if !ok {
		return
	}
	params := pagination.ParsePageParams(c)

	filter := repository.TenantFilter{
		PropertyID: propertyID,
		Status:     c.Query("status"),
		Keyword:    c.Query("keyword"),
	}
	tenants, total, err := h.occupancy.ListTenants(c.Request.Context(), filter, params.GetOffset(), params.GetLimit())
	if err != nil {
		response.AppError(c, err, "查询租客失败")
		return
	}
	response.SuccessWithPage(c, tenants, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// GetByID 租客详情
func (h *TenantHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	tenant, err := h.occupancy.GetTenant(c.Request.Context(), id)
	if err != nil {
		response.AppError(c, err, "查询租客失败")
		return
	}
	response.Success(c, tenant)
}

// End 结束租约并释放单元
func (h *TenantHandler) End(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req EndTenancyRequest
	// 请求体可选
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	at := time.Now()
	if req.MovedOutAt != "" {
		parsed, err := parseDate(req.MovedOutAt)
		if err != nil {
			response.BadRequest(c, "moved_out_at: "+err.Error())
			return
		}
		at = parsed
	}

	tenant, err := h.occupancy.EndTenancy(c.Request.Context(), id, at)
	if err != nil {
		response.AppError(c, err, "结束租约失败")
		return
	}
	response.SuccessWithMessage(c, "租约已结束", tenant)
}
