package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidation 校验错误中的字段名使用 json 标签
func RegisterValidation() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
}

// 接受的日期格式：月份、日期、完整时间戳
var dateLayouts = []string{time.RFC3339, "2006-01-02", "2006-01"}

// parseDate 解析请求中的日期，未带时区的按 UTC 处理
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("无法解析日期 %q，支持 YYYY-MM、YYYY-MM-DD 或 RFC3339", value)
}

// parseIDParam 解析路径中的ID参数，失败时已写入响应
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, fmt.Sprintf("%s格式错误", name))
		return 0, false
	}
	return uint(id), true
}

// parseOptionalUintQuery 可选的数字查询参数，未传时返回 nil
func parseOptionalUintQuery(c *gin.Context, name string) (*uint, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || v == 0 {
		response.BadRequest(c, fmt.Sprintf("%s格式错误", name))
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// parseIntQuery 必填的整数查询参数
func parseIntQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		response.BadRequest(c, fmt.Sprintf("缺少参数 %s", name))
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, fmt.Sprintf("%s格式错误", name))
		return 0, false
	}
	return v, true
}

// bindJSON 绑定并校验请求体，失败时已写入响应
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.BadRequest(c, bindingMessage(err))
		return false
	}
	return true
}

// bindingMessage 把绑定错误转为具体到字段的提示
func bindingMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		messages := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			messages = append(messages, fieldMessage(fe))
		}
		return "参数错误: " + strings.Join(messages, "; ")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("参数错误: %s 类型应为 %s", typeErr.Field, typeErr.Type.String())
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return "参数错误: 请求体不是合法的JSON"
	}
	return "参数错误: " + err.Error()
}

func fieldMessage(fe validator.FieldError) string {
	field := jsonFieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s 不能为空", field)
	case "email":
		return fmt.Sprintf("%s 不是合法的邮箱", field)
	case "max":
		return fmt.Sprintf("%s 长度不能超过 %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s 不能小于 %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s 必须是 [%s] 之一", field, fe.Param())
	default:
		return fmt.Sprintf("%s 校验失败 (%s)", field, fe.Tag())
	}
}

// jsonFieldPath 去掉顶层结构体名，如 CreatePropertyRequest.floors[0].units[1].unit_number -> floors[0].units[1].unit_number
func jsonFieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx != -1 {
		return ns[idx+1:]
	}
	return fe.Field()
}
