package handlers

import (
	"rentledger/internal/services"
	"rentledger/pkg/pagination"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RecordPaymentRequest 登记支付请求
//
// payment_method 由服务层校验，以便返回具体的错误码
type RecordPaymentRequest struct {
	PropertyID    uint             `json:"property_id" binding:"required"`
	UnitNumber    string           `json:"unit_number" binding:"required,max=50"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	PaymentMonth  string           `json:"payment_month" binding:"required"`
	PaymentDate   string           `json:"payment_date"`
	PaymentMethod string           `json:"payment_method" binding:"required"`
	Notes         string           `json:"notes" binding:"max=1000"`
	Reference     string           `json:"reference" binding:"max=64"`
}

// PreviewPaymentRequest 支付预览请求
type PreviewPaymentRequest struct {
	PropertyID uint             `json:"property_id" binding:"required"`
	UnitNumber string           `json:"unit_number" binding:"required,max=50"`
	Amount     *decimal.Decimal `json:"amount" binding:"required"`
}

// Create 登记支付
func (h *PaymentHandler) Create(c *gin.Context) {
	var req RecordPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	month, err := parseDate(req.PaymentMonth)
	if err != nil {
		response.BadRequest(c, "payment_month: "+err.Error())
		return
	}
	input := services.RecordPaymentInput{
		PropertyID:    req.PropertyID,
		UnitNumber:    req.UnitNumber,
		Amount:        *req.Amount,
		PaymentMonth:  month,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Reference:     req.Reference,
	}
	if req.PaymentDate != "" {
		if input.PaymentDate, err = parseDate(req.PaymentDate); err != nil {
			response.BadRequest(c, "payment_date: "+err.Error())
			return
		}
	}

	payment, err := h.payments.RecordPayment(c.Request.Context(), input)
	if err != nil {
		response.AppError(c, err, "登记支付失败")
		return
	}
	response.SuccessWithMessage(c, "登记成功", payment)
}

// Preview 计算支付状态，不落库
func (h *PaymentHandler) Preview(c *gin.Context) {
	var req PreviewPaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	preview, err := h.payments.PreviewPayment(c.Request.Context(), req.PropertyID, req.UnitNumber, *req.Amount)
	if err != nil {
		response.AppError(c, err, "支付预览失败")
		return
	}
	response.Success(c, preview)
}

// List 物业的支付记录，property_id 必填
func (h *PaymentHandler) List(c *gin.Context) {
	propertyID, ok := parseOptionalUintQuery(c, "property_id")
	if !ok {
		return
	}
	if propertyID == nil {
		response.BadRequest(c, "缺少参数 property_id")
		return
	}
	params := pagination.ParsePageParams(c)

	payments, total, err := h.payments.ListByProperty(c.Request.Context(), *propertyID, params.GetOffset(), params.GetLimit())
	if err != nil {
		response.AppError(c, err, "查询支付记录失败")
		return
	}
	response.SuccessWithPage(c, payments, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// GetByID 支付详情
func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	payment, err := h.payments.GetByID(c.Request.Context(), id)
	if err != nil {
		response.AppError(c, err, "查询支付记录失败")
		return
	}
	response.Success(c, payment)
}
