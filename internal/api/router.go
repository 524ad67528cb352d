package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jengzang/geofence-verify/internal/config"
	"github.com/jengzang/geofence-verify/internal/geoip"
	"github.com/jengzang/geofence-verify/internal/handler"
	"github.com/jengzang/geofence-verify/internal/kvstore"
	"github.com/jengzang/geofence-verify/internal/metrics"
	"github.com/jengzang/geofence-verify/internal/middleware"
	"github.com/jengzang/geofence-verify/internal/repository"
	"github.com/jengzang/geofence-verify/internal/service"
	"github.com/rs/zerolog"
)

// AdminScope 区域管理接口所需的 token scope
const AdminScope = "geofence:admin"

// Dependencies 路由依赖的运行时资源
type Dependencies struct {
	DB      *sql.DB
	Store   kvstore.Store
	Locator geoip.Locator
	Limiter *middleware.RateLimiter // 为空时按配置新建
	Logger  zerolog.Logger
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	policy := cfg.Policy
	secret := []byte(cfg.JWTSecret)
	logger := deps.Logger

	// 业务组件
	zoneRepo := repository.NewZoneRepository(deps.DB)
	geofenceService := service.NewGeofenceService(zoneRepo, policy.Zones.SuggestedZoneLimit)
	zoneService := service.NewZoneService(zoneRepo, repository.NewProjectRepository(deps.DB), policy.Zones)
	devices := service.NewDeviceRegistry(policy.DeviceFingerprinting, deps.Store, logger)
	securityChecker := service.NewSecurityChecker(policy.AntiSpoofing, deps.Store, logger)
	verifier := service.NewVerificationService(
		securityChecker,
		devices,
		service.NewPatternGuard(policy.RateLimiting, deps.Store),
		logger,
	)
	gate, err := service.NewMobileGate(policy.Mobile)
	if err != nil {
		return nil, err
	}
	geofence := middleware.NewGeofence(
		service.NewLocationExtractor(),
		service.NewLocationValidator(policy.GPS),
		geofenceService,
		verifier,
		deps.Locator,
		policy,
		logger,
	)

	geofenceHandler := handler.NewGeofenceHandler(geofenceService)
	zoneHandler := handler.NewZoneHandler(zoneService)
	deviceHandler := handler.NewDeviceHandler(devices)
	historyHandler := handler.NewHistoryHandler(securityChecker)
	timesheetHandler := handler.NewTimesheetHandler(logger)

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.IPRateLimit, time.Minute)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))

	// CORS 中间件
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type", "Authorization", "X-Mobile-App", "X-App-Version",
			"X-Platform", "X-Device-ID", "X-Session-ID",
		},
		ExposeHeaders: []string{"X-Session-ID"},
		MaxAge:        12 * time.Hour,
	}))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Geofence verification API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API 路由组
	api := r.Group("/api/v1", middleware.RateLimit(limiter, logger), middleware.Auth(secret))
	{
		// 地理围栏接口
		geo := api.Group("/geofence")
		{
			geo.POST("/validate", geofenceHandler.ValidateLocation)
			geo.GET("/nearest", geofenceHandler.NearestZone)
			geo.GET("/suggested", geofenceHandler.SuggestedZones)
			geo.GET("/projects", zoneHandler.MyProjects)

			// 当前用户的设备
			geo.GET("/devices", deviceHandler.ListDevices)
			geo.DELETE("/devices/:device_id", deviceHandler.RevokeDevice)
			geo.GET("/history", historyHandler.LocationHistory)

			// 区域管理 (需要管理员 scope)
			admin := geo.Group("", middleware.RequireScope(AdminScope))
			{
				admin.POST("/zones", zoneHandler.CreateZone)
				admin.GET("/zones", zoneHandler.ListZones)
				admin.GET("/zones/:id", zoneHandler.GetZone)
				admin.PATCH("/zones/:id/toggle", zoneHandler.ToggleZone)
				admin.DELETE("/zones/:id", zoneHandler.DeleteZone)
				admin.POST("/projects/:project_id/users", zoneHandler.AssignUser)
				admin.DELETE("/projects/:project_id/users/:user_id", zoneHandler.UnassignUser)
			}
		}

		// 网页端考勤, 非移动端请求也检查
		api.POST("/timesheet/location",
			geofence.Check(middleware.ModeAlways), geofence.Verify(middleware.ModeAlways),
			timesheetHandler.RecordLocation)
	}

	// 移动端接口
	mobile := r.Group("/api/mobile", middleware.RateLimit(limiter, logger), middleware.MobileAuth(secret, gate, logger))
	{
		mobile.POST("/timesheet/clock-in",
			geofence.Check(middleware.ModeStrict), geofence.Verify(middleware.ModeStrict),
			timesheetHandler.ClockIn)
		mobile.POST("/timesheet/location",
			geofence.Check(middleware.ModeAdvisory), geofence.Verify(middleware.ModeAdvisory),
			timesheetHandler.RecordLocation)
	}

	return r, nil
}
