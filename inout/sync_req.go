package inout

// RefreshCacheReq 刷新缓存请求
// smart 为默认推荐入口；incremental 等价于 smart；full 走全量
type RefreshCacheReq struct {
	Mode string `json:"mode" form:"mode" binding:"omitempty,oneof=smart incremental full"`
	Days int    `json:"days" form:"days" binding:"omitempty,min=1,max=365"`
}

// ForceSyncDateReq 强制重同步单个日期
type ForceSyncDateReq struct {
	Date string `json:"date" binding:"required,datetime=2006-01-02"`
}
