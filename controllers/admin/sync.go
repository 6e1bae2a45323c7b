package admin

import (
	"errors"

	"pos-insight/inout"
	"pos-insight/pkg/cache"
	"pos-insight/pkg/response"
	"pos-insight/services/sync_service"

	"github.com/gin-gonic/gin"
)

// dashboardCachePrefix 看板响应缓存键前缀，同步成功后整组失效
const dashboardCachePrefix = "dashboard:"

// SyncController 缓存同步相关接口
type SyncController struct {
	sync      *sync_service.SyncService
	respCache *cache.CacheManager // 可为nil
}

// NewSyncController 创建同步控制器
func NewSyncController(sync *sync_service.SyncService, respCache *cache.CacheManager) *SyncController {
	return &SyncController{sync: sync, respCache: respCache}
}

// invalidateDashboardCache 指标落库后旧的看板响应立即作废
func (ctl *SyncController) invalidateDashboardCache(c *gin.Context) {
	if ctl.respCache != nil {
		ctl.respCache.InvalidatePrefix(c.Request.Context(), dashboardCachePrefix)
	}
}

// RefreshCache 刷新缓存
// mode=smart（默认，推荐）按过期检测增量同步；incremental等价smart；
// mode=full 无视元数据重聚合最近N天
func (ctl *SyncController) RefreshCache(c *gin.Context) {
	var params inout.RefreshCacheReq
	if err := c.ShouldBind(&params); err != nil {
		response.Error(c, response.INVALID_PARAMS, bindErrMessage(err))
		return
	}

	var result *sync_service.SyncResult
	var err error
	switch params.Mode {
	case "full":
		result, err = ctl.sync.FullSync(c.Request.Context(), params.Days)
	default: // smart / incremental / 空
		result, err = ctl.sync.SmartSync(c.Request.Context())
	}

	if err != nil {
		if errors.Is(err, sync_service.ErrSyncLocked) {
			response.Error(c, response.SYNC_LOCKED)
			return
		}
		response.Error(c, response.ERROR, err.Error())
		return
	}
	if len(result.SyncedDates) > 0 {
		ctl.invalidateDashboardCache(c)
	}
	response.Success(c, result)
}

// GetCacheStats 缓存统计
func (ctl *SyncController) GetCacheStats(c *gin.Context) {
	stats, err := ctl.sync.GetCacheStats()
	if err != nil {
		response.Error(c, response.ERROR, err.Error())
		return
	}
	response.Success(c, stats)
}

// ForceSyncDate 强制重同步指定日期（运维纠偏）
func (ctl *SyncController) ForceSyncDate(c *gin.Context) {
	var params inout.ForceSyncDateReq
	if err := c.ShouldBindJSON(&params); err != nil {
		response.Error(c, response.INVALID_PARAMS, bindErrMessage(err))
		return
	}

	result, err := ctl.sync.ForceSyncDate(c.Request.Context(), params.Date)
	if err != nil {
		if errors.Is(err, sync_service.ErrSyncLocked) {
			response.Error(c, response.SYNC_LOCKED)
			return
		}
		response.Error(c, response.ERROR, err.Error())
		return
	}
	ctl.invalidateDashboardCache(c)
	response.Success(c, result)
}
