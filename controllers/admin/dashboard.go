package admin

import (
	"errors"

	"pos-insight/cachestore"
	"pos-insight/inout"
	"pos-insight/pkg/response"
	"pos-insight/services/dashboard_service"

	"github.com/gin-gonic/gin"
)

// DashboardController 看板查询接口
type DashboardController struct {
	dashboard *dashboard_service.DashboardService
}

// NewDashboardController 创建看板控制器
func NewDashboardController(dashboard *dashboard_service.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

// bindFilter 解析并校验看板过滤参数
func bindFilter(c *gin.Context) (inout.DashboardFilterReq, bool) {
	var filter inout.DashboardFilterReq
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, response.INVALID_PARAMS, bindErrMessage(err))
		return filter, false
	}
	return filter, true
}

// respondDashboardErr 把服务层错误映射到响应码
func respondDashboardErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dashboard_service.ErrCacheEmpty):
		response.Error(c, response.CACHE_EMPTY)
	case errors.Is(err, cachestore.ErrInvalidDateRange):
		response.Error(c, response.INVALID_PARAMS, err.Error())
	default:
		response.Error(c, response.ERROR, err.Error())
	}
}

// GetKPIs 核心指标
func (ctl *DashboardController) GetKPIs(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	kpi, err := ctl.dashboard.GetDashboardKPIs(c.Request.Context(), filter)
	if err != nil {
		respondDashboardErr(c, err)
		return
	}
	response.Success(c, kpi)
}

// GetStoreHealth 门店健康度
func (ctl *DashboardController) GetStoreHealth(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	health, err := ctl.dashboard.GetStoreHealth(c.Request.Context(), filter)
	if err != nil {
		respondDashboardErr(c, err)
		return
	}
	response.Success(c, health)
}

// GetEmergingStores 成长门店榜单
func (ctl *DashboardController) GetEmergingStores(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	stores, err := ctl.dashboard.GetEmergingStores(c.Request.Context(), filter)
	if err != nil {
		respondDashboardErr(c, err)
		return
	}
	response.Success(c, stores)
}

// GetMenuRankings 菜单排行
func (ctl *DashboardController) GetMenuRankings(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	rankings, err := ctl.dashboard.GetMenuRankings(c.Request.Context(), filter)
	if err != nil {
		respondDashboardErr(c, err)
		return
	}
	response.Success(c, rankings)
}

// GetMenuContribution 菜单帕累托贡献
func (ctl *DashboardController) GetMenuContribution(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	contribution, err := ctl.dashboard.GetMenuContribution(c.Request.Context(), filter)
	if err != nil {
		respondDashboardErr(c, err)
		return
	}
	response.Success(c, contribution)
}

// GetMenuTrend 菜单趋势
func (ctl *DashboardController) GetMenuTrend(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	trend, err := ctl.dashboard.GetMenuTrend(c.Request.Context(), filter)
	if err != nil {
		respondDashboardErr(c, err)
		return
	}
	response.Success(c, trend)
}

// GetCrossSellPairs 菜单共现分析
func (ctl *DashboardController) GetCrossSellPairs(c *gin.Context) {
	filter, ok := bindFilter(c)
	if !ok {
		return
	}

	pairs, err := ctl.dashboard.GetCrossSellPairs(c.Request.Context(), filter)
	if err != nil {
		respondDashboardErr(c, err)
		return
	}
	response.Success(c, pairs)
}
