package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentledger/internal/models"
	"rentledger/internal/repository"
	"rentledger/pkg/config"
	apperrors "rentledger/pkg/errors"
	"rentledger/pkg/pagination"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code     int                  `json:"code"`
	Message  string               `json:"message"`
	Data     json.RawMessage      `json:"data"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	deps := Dependencies{
		Store: repository.NewMemoryStore(),
		CORS: config.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE"},
		},
	}
	return SetupRouter(deps, NewServices(deps))
}

func call(t *testing.T, r http.Handler, method, path string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.Equal(t, apperrors.CodeSuccess, env.Code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func createProperty(t *testing.T, r http.Handler) models.Property {
	t.Helper()
	var property models.Property
	decodeData(t, call(t, r, http.MethodPost, "/api/v1/properties", map[string]interface{}{
		"name":    "Maple House",
		"address": "12 Maple Ave",
		"floors": []map[string]interface{}{
			{"floor_number": 0, "units": []map[string]interface{}{
				{"unit_number": "G1", "monthly_rent": "800"},
			}},
			{"floor_number": 1, "units": []map[string]interface{}{
				{"unit_number": "101", "monthly_rent": 1200},
				{"unit_number": "102", "monthly_rent": "1500.00"},
			}},
		},
	}), &property)
	return property
}

func assignTenant(t *testing.T, r http.Handler, propertyID uint, unitNumber string) models.Tenant {
	t.Helper()
	var tenant models.Tenant
	decodeData(t, call(t, r, http.MethodPost, "/api/v1/tenants", map[string]interface{}{
		"name":             "Ann Lee",
		"email":            "ann@example.com",
		"phone_number":     "555-0101",
		"property_id":      propertyID,
		"unit_number":      unitNumber,
		"lease_start_date": "2024-01-01",
		"lease_end_date":   "2024-12-31",
		"deposit_amount":   "1000",
		"emergency_contact": map[string]string{
			"name":  "Bo Lee",
			"phone": "555-0102",
		},
	}), &tenant)
	return tenant
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	env := call(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, apperrors.CodeSuccess, env.Code)

	env = call(t, r, http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, "pong", env.Message)
}

func TestPropertyLifecycle(t *testing.T) {
	r := newTestRouter(t)
	property := createProperty(t, r)
	require.Len(t, property.Floors, 2)
	assert.Equal(t, 0, property.Floors[0].FloorNumber)

	var list []models.Property
	env := call(t, r, http.MethodGet, "/api/v1/properties?page=1&page_size=10", nil)
	decodeData(t, env, &list)
	require.NotNil(t, env.PageInfo)
	assert.EqualValues(t, 1, env.PageInfo.Total)

	var floorTree models.Property
	decodeData(t, call(t, r, http.MethodPost, fmt.Sprintf("/api/v1/properties/%d/floors", property.ID), map[string]interface{}{
		"floor_number": 2,
	}), &floorTree)
	require.Len(t, floorTree.Floors, 3)
	floorID := floorTree.Floors[2].ID

	var unit models.Unit
	decodeData(t, call(t, r, http.MethodPost, fmt.Sprintf("/api/v1/properties/%d/floors/%d/units", property.ID, floorID), map[string]interface{}{
		"unit_number": "201", "monthly_rent": "950",
	}), &unit)
	assert.Equal(t, floorID, unit.FloorID)

	env = call(t, r, http.MethodPost, fmt.Sprintf("/api/v1/properties/%d/floors/%d/units", property.ID, floorID), map[string]interface{}{
		"unit_number": "101", "monthly_rent": "950",
	})
	assert.Equal(t, apperrors.CodeDuplicateUnitNumber, env.Code)

	var updated models.Unit
	decodeData(t, call(t, r, http.MethodPut, fmt.Sprintf("/api/v1/properties/%d/units/%d", property.ID, unit.ID), map[string]interface{}{
		"monthly_rent": "990",
	}), &updated)
	assert.True(t, updated.MonthlyRent.Equal(decimal.NewFromInt(990)))
	assert.Equal(t, "201", updated.UnitNumber)

	env = call(t, r, http.MethodGet, "/api/v1/properties/999", nil)
	assert.Equal(t, apperrors.CodePropertyNotFound, env.Code)

	env = call(t, r, http.MethodGet, "/api/v1/properties/abc", nil)
	assert.Equal(t, apperrors.CodeInvalidParam, env.Code)

	env = call(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/properties/%d", property.ID), nil)
	assert.Equal(t, apperrors.CodeSuccess, env.Code)
}

func TestCreateProperty_ValidationMessage(t *testing.T) {
	r := newTestRouter(t)
	env := call(t, r, http.MethodPost, "/api/v1/properties", map[string]interface{}{
		"name":    "No Rent",
		"address": "1 Road",
		"floors": []map[string]interface{}{
			{"floor_number": 1, "units": []map[string]interface{}{{"unit_number": "1"}}},
		},
	})
	assert.Equal(t, apperrors.CodeInvalidParam, env.Code)
	assert.Contains(t, env.Message, "floors[0].units[0].monthly_rent")

	env = call(t, r, http.MethodPost, "/api/v1/properties", map[string]interface{}{
		"name":    "Zero Rent",
		"address": "1 Road",
		"floors": []map[string]interface{}{
			{"floor_number": 1, "units": []map[string]interface{}{{"unit_number": "1", "monthly_rent": 0}}},
		},
	})
	assert.Equal(t, apperrors.CodeInvalidRent, env.Code)
}

func TestPaymentFlow(t *testing.T) {
	r := newTestRouter(t)
	property := createProperty(t, r)
	tenant := assignTenant(t, r, property.ID, "101")
	assert.Equal(t, models.TenantStatusActive, tenant.Status)
	assert.JSONEq(t, `{"name":"Bo Lee","phone":"555-0102"}`, string(tenant.EmergencyContact))

	env := call(t, r, http.MethodPost, "/api/v1/tenants", map[string]interface{}{
		"name": "Second", "email": "second@example.com", "phone_number": "1",
		"property_id": property.ID, "unit_number": "101",
		"lease_start_date": "2024-01-01", "lease_end_date": "2025-01-01",
	})
	assert.Equal(t, apperrors.CodeUnitOccupied, env.Code)

	var preview struct {
		Status  string          `json:"status"`
		Balance decimal.Decimal `json:"balance"`
		Credit  decimal.Decimal `json:"credit"`
	}
	decodeData(t, call(t, r, http.MethodPost, "/api/v1/payments/preview", map[string]interface{}{
		"property_id": property.ID, "unit_number": "101", "amount": "1300",
	}), &preview)
	assert.Equal(t, models.PaymentStatusOverpaid, preview.Status)
	assert.True(t, preview.Credit.Equal(decimal.NewFromInt(100)))

	var payment models.Payment
	decodeData(t, call(t, r, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"property_id":    property.ID,
		"unit_number":    "101",
		"amount":         "500",
		"payment_month":  "2024-02",
		"payment_date":   "2024-03-04",
		"payment_method": "BANK_TRANSFER",
		"notes":          "February rent, paid late",
	}), &payment)
	assert.Equal(t, models.PaymentStatusPartial, payment.Status)
	assert.True(t, payment.Balance.Equal(decimal.NewFromInt(700)))
	assert.Equal(t, tenant.ID, payment.TenantID)

	env = call(t, r, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"property_id": property.ID, "unit_number": "102", "amount": "1500",
		"payment_month": "2024-02", "payment_method": "CASH",
	})
	assert.Equal(t, apperrors.CodeUnitVacant, env.Code)

	env = call(t, r, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"property_id": property.ID, "unit_number": "101", "amount": "1500",
		"payment_month": "2024-02", "payment_method": "PAYPAL",
	})
	assert.Equal(t, apperrors.CodeInvalidPaymentMethod, env.Code)

	env = call(t, r, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"property_id": property.ID, "unit_number": "101",
		"payment_month": "2024-02", "payment_method": "CASH",
	})
	assert.Equal(t, apperrors.CodeInvalidParam, env.Code)
	assert.Contains(t, env.Message, "amount")

	env = call(t, r, http.MethodPost, "/api/v1/payments", map[string]interface{}{
		"property_id": property.ID, "unit_number": "101", "amount": "10",
		"payment_month": "Feb 2024", "payment_method": "CASH",
	})
	assert.Equal(t, apperrors.CodeInvalidParam, env.Code)

	var listed []models.Payment
	env = call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/payments?property_id=%d", property.ID), nil)
	decodeData(t, env, &listed)
	require.Len(t, listed, 1)
	assert.EqualValues(t, 1, env.PageInfo.Total)

	var fetched models.Payment
	decodeData(t, call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/payments/%d", payment.ID), nil), &fetched)
	assert.Equal(t, payment.Reference, fetched.Reference)

	var history []models.Payment
	decodeData(t, call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/properties/%d/units/%d/payments", property.ID, payment.UnitID), nil), &history)
	assert.Len(t, history, 1)

	var feb struct {
		TotalRevenue   decimal.Decimal `json:"total_revenue"`
		TotalDue       decimal.Decimal `json:"total_due"`
		CollectionRate int             `json:"collection_rate"`
		LineItems      []interface{}   `json:"line_items"`
	}
	decodeData(t, call(t, r, http.MethodGet, "/api/v1/reports/monthly?month=2&year=2024", nil), &feb)
	assert.True(t, feb.TotalRevenue.Equal(decimal.NewFromInt(500)))
	assert.True(t, feb.TotalDue.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, 42, feb.CollectionRate)
	assert.Len(t, feb.LineItems, 1)

	var mar struct {
		LineItems []interface{} `json:"line_items"`
	}
	decodeData(t, call(t, r, http.MethodGet, "/api/v1/reports/monthly?month=3&year=2024", nil), &mar)
	assert.Empty(t, mar.LineItems)

	var yearly struct {
		MonthlyBreakdown []struct {
			Month        int `json:"month"`
			PaymentCount int `json:"payment_count"`
		} `json:"monthly_breakdown"`
	}
	decodeData(t, call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/reports/yearly?year=2024&property_id=%d", property.ID), nil), &yearly)
	require.Len(t, yearly.MonthlyBreakdown, 12)
	assert.Equal(t, 1, yearly.MonthlyBreakdown[1].PaymentCount)

	env = call(t, r, http.MethodGet, "/api/v1/reports/monthly?month=13&year=2024", nil)
	assert.Equal(t, apperrors.CodeInvalidPeriod, env.Code)
	env = call(t, r, http.MethodGet, "/api/v1/reports/monthly?year=2024", nil)
	assert.Equal(t, apperrors.CodeInvalidParam, env.Code)
}

func TestEndTenancy(t *testing.T) {
	r := newTestRouter(t)
	property := createProperty(t, r)
	tenant := assignTenant(t, r, property.ID, "G1")

	var ended models.Tenant
	decodeData(t, call(t, r, http.MethodPost, fmt.Sprintf("/api/v1/tenants/%d/end", tenant.ID), map[string]string{
		"moved_out_at": "2024-06-30",
	}), &ended)
	assert.Equal(t, models.TenantStatusPast, ended.Status)

	env := call(t, r, http.MethodPost, fmt.Sprintf("/api/v1/tenants/%d/end", tenant.ID), nil)
	assert.Equal(t, apperrors.CodeTenantInactive, env.Code)

	var financials struct {
		OccupiedUnits int `json:"occupied_units"`
		VacantUnits   int `json:"vacant_units"`
	}
	decodeData(t, call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/properties/%d/financials", property.ID), nil), &financials)
	assert.Zero(t, financials.OccupiedUnits)
	assert.Equal(t, 3, financials.VacantUnits)

	var tenants []models.Tenant
	env = call(t, r, http.MethodGet, fmt.Sprintf("/api/v1/tenants?property_id=%d&status=past", property.ID), nil)
	decodeData(t, env, &tenants)
	assert.Len(t, tenants, 1)
}

func TestEventStreamDisabled(t *testing.T) {
	r := newTestRouter(t)
	env := call(t, r, http.MethodGet, "/api/v1/ws/payments", nil)
	assert.Equal(t, http.StatusServiceUnavailable, env.Code)
}
