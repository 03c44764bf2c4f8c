package router

import (
	"time"

	"rentledger/internal/handlers"
	"rentledger/internal/middleware"
	"rentledger/internal/repository"
	"rentledger/internal/services"
	"rentledger/pkg/config"
	"rentledger/pkg/queue"
	"rentledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由依赖，Events 为空时不提供事件推送
type Dependencies struct {
	Store  repository.Store
	Events *queue.RedisPublisher
	CORS   config.CORSConfig
}

// Services 由路由组装的服务，供调度器等复用
type Services struct {
	Occupancy  *services.OccupancyService
	Payments   *services.PaymentService
	Reports    *services.ReportService
	Properties *services.PropertyService
}

// NewServices 组装服务层
func NewServices(deps Dependencies) *Services {
	var publisher services.EventPublisher = services.NopPublisher{}
	if deps.Events != nil {
		publisher = deps.Events
	}

	occupancy := services.NewOccupancyService(deps.Store, publisher)
	return &Services{
		Occupancy:  occupancy,
		Payments:   services.NewPaymentService(deps.Store, occupancy, publisher),
		Reports:    services.NewReportService(deps.Store),
		Properties: services.NewPropertyService(deps.Store),
	}
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies, svc *Services) *gin.Engine {
	handlers.RegisterValidation()

	router := gin.New()

	// 中间件
	router.Use(middleware.RequestLogger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SetupCORS(deps.CORS))

	registerRoutes(router, deps, svc)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps Dependencies, svc *Services) {
	api := router.Group("/api/v1")
	{
		// 健康检查接口
		api.GET("/health", healthCheck)
		api.GET("/ping", ping)

		propertyHandler := handlers.NewPropertyHandler(svc.Properties, svc.Occupancy, svc.Payments)
		properties := api.Group("/properties")
		{
			properties.POST("", propertyHandler.Create)
			properties.GET("", propertyHandler.List)
			properties.GET("/:id", propertyHandler.GetByID)
			properties.PUT("/:id", propertyHandler.Update)
			properties.DELETE("/:id", propertyHandler.Delete)
			properties.GET("/:id/financials", propertyHandler.Financials)

			// 楼层和单元按ID单独维护
			properties.POST("/:id/floors", propertyHandler.AddFloor)
			properties.POST("/:id/floors/:floorId/units", propertyHandler.AddUnit)
			properties.PUT("/:id/units/:unitId", propertyHandler.UpdateUnit)
			properties.GET("/:id/units/:unitId/payments", propertyHandler.UnitPayments)
		}

		tenantHandler := handlers.NewTenantHandler(svc.Occupancy)
		tenants := api.Group("/tenants")
		{
			tenants.POST("", tenantHandler.Create)
			tenants.GET("", tenantHandler.List)
			tenants.GET("/:id", tenantHandler.GetByID)
			tenants.POST("/:id/end", tenantHandler.End)
		}

		paymentHandler := handlers.NewPaymentHandler(svc.Payments)
		payments := api.Group("/payments")
		{
			payments.POST("", paymentHandler.Create)
			payments.POST("/preview", paymentHandler.Preview)
			payments.GET("", paymentHandler.List)
			payments.GET("/:id", paymentHandler.GetByID)
		}

		reportHandler := handlers.NewReportHandler(svc.Reports)
		reports := api.Group("/reports")
		{
			reports.GET("/monthly", reportHandler.Monthly)
			reports.GET("/yearly", reportHandler.Yearly)
		}

		if deps.Events != nil {
			wsHandler := handlers.NewWebSocketHandler(deps.Events, deps.CORS.AllowOrigins)
			api.GET("/ws/payments", wsHandler.PaymentEvents)
		} else {
			api.GET("/ws/payments", handlers.Unavailable)
		}
	}
}

func healthCheck(c *gin.Context) {
	data := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now(),
		"service":   "rentledger",
		"version":   "1.0.0",
	}
	response.Success(c, data)
}

func ping(c *gin.Context) {
	response.SuccessWithMessage(c, "pong", nil)
}
