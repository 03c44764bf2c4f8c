package handlers

import (
	"rentledger/internal/services"
	"rentledger/pkg/pagination"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PropertyHandler struct {
	properties *services.PropertyService
	occupancy  *services.OccupancyService
	payments   *services.PaymentService
}

func NewPropertyHandler(properties *services.PropertyService, occupancy *services.OccupancyService, payments *services.PaymentService) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		occupancy:  occupancy,
		payments:   payments,
	}
}

// UnitRequest 单元
type UnitRequest struct {
	UnitNumber  string           `json:"unit_number" binding:"required,max=50"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent" binding:"required"`
}

// FloorRequest 楼层，楼层号可以为 0
type FloorRequest struct {
	FloorNumber *int          `json:"floor_number" binding:"required"`
	Units       []UnitRequest `json:"units" binding:"dive"`
}

// CreatePropertyRequest 创建物业请求
type CreatePropertyRequest struct {
	Name    string         `json:"name" binding:"required,max=200"`
	Address string         `json:"address" binding:"required,max=500"`
	Floors  []FloorRequest `json:"floors" binding:"dive"`
}

// UpdatePropertyRequest 更新物业请求
type UpdatePropertyRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Address string `json:"address" binding:"required,max=500"`
}

// UpdateUnitRequest 字段留空表示不修改
type UpdateUnitRequest struct {
	UnitNumber  *string          `json:"unit_number" binding:"omitempty,max=50"`
	MonthlyRent *decimal.Decimal `json:"monthly_rent"`
}

func (r UnitRequest) toInput() services.UnitInput {
	return services.UnitInput{UnitNumber: r.UnitNumber, MonthlyRent: *r.MonthlyRent}
}

func (r FloorRequest) toInput() services.FloorInput {
	input := services.FloorInput{FloorNumber: *r.FloorNumber}
	for _, u := range r.Units {
		input.Units = append(input.Units, u.toInput())
	}
	return input
}

// Create 创建物业
func (h *PropertyHandler) Create(c *gin.Context) {
	var req CreatePropertyRequest
	if !bindJSON(c, &req) {
		return
	}

	input := services.CreatePropertyInput{Name: req.Name, Address: req.Address}
	for _, f := range req.Floors {
		input.Floors = append(input.Floors, f.toInput())
	}

	property, err := h.properties.CreateProperty(c.Request.Context(), input)
	if err != nil {
		response.AppError(c, err, "创建物业失败")
		return
	}
	response.SuccessWithMessage(c, "创建成功", property)
}

// List 物业列表
func (h *PropertyHandler) List(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	properties, total, err := h.properties.ListProperties(c.Request.Context(), c.Query("keyword"), params.GetOffset(), params.GetLimit())
	if err != nil {
		response.AppError(c, err, "查询物业失败")
		return
	}
	response.SuccessWithPage(c, properties, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// GetByID 物业详情，包含楼层和单元
func (h *PropertyHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	property, err := h.properties.GetProperty(c.Request.Context(), id)
	if err != nil {
		response.AppError(c, err, "查询物业失败")
		return
	}
	response.Success(c, property)
}

// Update 修改名称和地址
func (h *PropertyHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdatePropertyRequest
	if !bindJSON(c, &req) {
		return
	}

	property, err := h.properties.UpdateProperty(c.Request.Context(), id, req.Name, req.Address)
	if err != nil {
		response.AppError(c, err, "更新物业失败")
		return
	}
	response.SuccessWithMessage(c, "更新成功", property)
}

// Delete 删除物业
func (h *PropertyHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.properties.DeleteProperty(c.Request.Context(), id); err != nil {
		response.AppError(c, err, "删除物业失败")
		return
	}
	response.SuccessWithMessage(c, "删除成功", nil)
}

// Financials 出租概况
func (h *PropertyHandler) Financials(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	financials, err := h.occupancy.GetFinancials(c.Request.Context(), id)
	if err != nil {
		response.AppError(c, err, "查询出租概况失败")
		return
	}
	response.Success(c, financials)
}

// AddFloor 新增楼层
func (h *PropertyHandler) AddFloor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req FloorRequest
	if !bindJSON(c, &req) {
		return
	}

	property, err := h.properties.AddFloor(c.Request.Context(), id, req.toInput())
	if err != nil {
		response.AppError(c, err, "新增楼层失败")
		return
	}
	response.SuccessWithMessage(c, "创建成功", property)
}

// AddUnit 新增单元
func (h *PropertyHandler) AddUnit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	floorID, ok := parseIDParam(c, "floorId")
	if !ok {
		return
	}
	var req UnitRequest
	if !bindJSON(c, &req) {
		return
	}

	unit, err := h.properties.AddUnit(c.Request.Context(), id, floorID, req.toInput())
	if err != nil {
		response.AppError(c, err, "新增单元失败")
		return
	}
	response.SuccessWithMessage(c, "创建成功", unit)
}

// UpdateUnit 修改单元编号或租金
func (h *PropertyHandler) UpdateUnit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	unitID, ok := parseIDParam(c, "unitId")
	if !ok {
		return
	}
	var req UpdateUnitRequest
	if !bindJSON(c, &req) {
		return
	}

	unit, err := h.properties.UpdateUnit(c.Request.Context(), id, unitID, services.UpdateUnitInput{
		UnitNumber:  req.UnitNumber,
		MonthlyRent: req.MonthlyRent,
	})
	if err != nil {
		response.AppError(c, err, "更新单元失败")
		return
	}
	response.SuccessWithMessage(c, "更新成功", unit)
}

// UnitPayments 单元支付历史
func (h *PropertyHandler) UnitPayments(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	unitID, ok := parseIDParam(c, "unitId")
	if !ok {
		return
	}

	payments, err := h.payments.UnitHistory(c.Request.Context(), id, unitID)
	if err != nil {
		response.AppError(c, err, "查询支付记录失败")
		return
	}
	response.Success(c, payments)
}
