package inout

// DashboardFilterReq 看板查询的通用过滤参数
type DashboardFilterReq struct {
	StartDate string   `json:"start_date" form:"start_date" binding:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" form:"end_date" binding:"required,datetime=2006-01-02"`
	StoreIDs  []string `json:"store_ids" form:"store_ids"`
	Limit     int      `json:"limit" form:"limit" binding:"omitempty,min=1,max=200"`
}

// LoginReq 控制台登录请求
type LoginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
