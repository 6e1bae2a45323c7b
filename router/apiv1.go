package router

import (
	"pos-insight/api"
	"pos-insight/controllers/admin"
	"pos-insight/middleware"
	"pos-insight/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Deps 路由依赖，组合根注入
type Deps struct {
	Auth      *api.Auth
	Sync      *admin.SyncController
	Dashboard *admin.DashboardController
	JWT       *jwt.Manager
	SyncToken string
}

// Init 注册全部路由
func Init(r *gin.Engine, deps Deps) {
	r.POST("/api/login", deps.Auth.Login)

	// 同步触发接口走共享密钥，不走控制台会话
	cacheGroup := r.Group("/api/admin/cache")
	cacheGroup.Use(middleware.SyncTokenAuth(deps.SyncToken))
	{
		cacheGroup.POST("/refresh", deps.Sync.RefreshCache)
		cacheGroup.GET("/stats", deps.Sync.GetCacheStats)
		cacheGroup.POST("/sync_date", deps.Sync.ForceSyncDate)
	}

	dashboardGroup := r.Group("/api/admin/dashboard")
	dashboardGroup.Use(middleware.JWTAuth(deps.JWT))
	{
		dashboardGroup.GET("/kpis", deps.Dashboard.GetKPIs)
		dashboardGroup.GET("/health", deps.Dashboard.GetStoreHealth)
		dashboardGroup.GET("/emerging", deps.Dashboard.GetEmergingStores)
		dashboardGroup.GET("/menu/rankings", deps.Dashboard.GetMenuRankings)
		dashboardGroup.GET("/menu/contribution", deps.Dashboard.GetMenuContribution)
		dashboardGroup.GET("/menu/trend", deps.Dashboard.GetMenuTrend)
		dashboardGroup.GET("/menu/cross_sell", deps.Dashboard.GetCrossSellPairs)
	}
}
