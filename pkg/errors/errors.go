package errors

import (
	stderrors "errors"
)

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeServerError  = 500
)

// 业务错误码：前三位对应HTTP语义，后两位区分具体原因
const (
	CodeInvalidRent          = 40010
	CodeInvalidAmount        = 40011
	CodeInvalidPaymentMethod = 40012
	CodeInvalidPeriod        = 40013
	CodeInvalidLease         = 40014

	CodePropertyNotFound = 40410
	CodeUnitNotFound     = 40411
	CodeTenantNotFound   = 40412
	CodePaymentNotFound  = 40413
	CodeFloorNotFound    = 40414

	CodeDuplicateUnitNumber = 40910
	CodeUnitVacant          = 40911
	CodeUnitOccupied        = 40912
	CodeTenantInactive      = 40913
	CodeDuplicateFloor      = 40914
	CodeDuplicateReference  = 40915
)

// AppError 带业务码的错误
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// New 创建业务错误
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// 业务错误哨兵值，调用方使用 fmt.Errorf("%w: ...") 包装补充上下文
var (
	ErrInvalidParam = New(CodeInvalidParam, "invalid parameter")

	ErrInvalidRent          = New(CodeInvalidRent, "monthly rent must be greater than zero")
	ErrInvalidAmount        = New(CodeInvalidAmount, "payment amount must not be negative")
	ErrInvalidPaymentMethod = New(CodeInvalidPaymentMethod, "payment method must be one of CASH, BANK_TRANSFER, CHECK, MOBILE_MONEY")
	ErrInvalidPeriod        = New(CodeInvalidPeriod, "invalid report period")
	ErrInvalidLease         = New(CodeInvalidLease, "lease end date must be after lease start date")

	ErrPropertyNotFound = New(CodePropertyNotFound, "property not found")
	ErrUnitNotFound     = New(CodeUnitNotFound, "unit not found")
	ErrTenantNotFound   = New(CodeTenantNotFound, "tenant not found")
	ErrPaymentNotFound  = New(CodePaymentNotFound, "payment not found")
	ErrFloorNotFound    = New(CodeFloorNotFound, "floor not found")

	ErrDuplicateUnitNumber = New(CodeDuplicateUnitNumber, "unit number is not unique within the property")
	ErrUnitVacant          = New(CodeUnitVacant, "unit is vacant")
	ErrUnitOccupied        = New(CodeUnitOccupied, "unit is already occupied")
	ErrTenantInactive      = New(CodeTenantInactive, "tenancy has already ended")
	ErrDuplicateFloor      = New(CodeDuplicateFloor, "floor number already exists in the property")
	ErrDuplicateReference  = New(CodeDuplicateReference, "payment reference already exists")
)

// As 从错误链中取出 AppError
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
