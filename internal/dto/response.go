package dto

// ── 实验室用户模块响应 ──

// LabUserProfile 用户展示 DTO（脱敏，不含密码哈希）。
// 编码字段同时携带展示文案（*Desc），由服务层统一装配。
type LabUserProfile struct {
	ID                 int64  `json:"id"`
	StudentNumber      string `json:"student_number,omitempty"`
	Username           string `json:"username"`
	RealName           string `json:"real_name"`
	EnglishName        string `json:"english_name,omitempty"`
	Gender             int16  `json:"gender"`
	GenderDesc         string `json:"gender_desc"`
	Identity           int16  `json:"identity"`
	IdentityDesc       string `json:"identity_desc"`
	AcademicStatus     *int16 `json:"academic_status,omitempty"`
	AcademicStatusDesc string `json:"academic_status_desc,omitempty"`
	ResearchArea       string `json:"research_area,omitempty"`
	Phone              string `json:"phone,omitempty"`
	Email              string `json:"email,omitempty"`
	Status             int16  `json:"status"`
	StatusDesc         string `json:"status_desc"`
	EnrollmentYear     *int   `json:"enrollment_year,omitempty"`
	GraduationYear     *int   `json:"graduation_year,omitempty"`
	GraduationDest     string `json:"graduation_dest,omitempty"`
	Photo              string `json:"photo,omitempty"`
	Resume             string `json:"resume,omitempty"`
	HomepageURL        string `json:"homepage_url,omitempty"`
	Orcid              string `json:"orcid,omitempty"`
	IsActive           bool   `json:"is_active"`
	CreateTime         string `json:"create_time"`
	UpdateTime         string `json:"update_time"`
}

// CreateLabUserResponse 创建用户响应
type CreateLabUserResponse struct {
	ID int64 `json:"id"`
}

// LabUserStatistics 用户统计响应
type LabUserStatistics struct {
	Total      int64            `json:"total"`
	ByIdentity map[string]int64 `json:"by_identity"` // 身份文案 -> 人数
	ByStatus   map[string]int64 `json:"by_status"`   // 状态文案 -> 人数
}

// ImportLabUserResponse 批量导入用户响应
type ImportLabUserResponse struct {
	Total   int              `json:"total"`
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError 导入错误详情
type ImportRowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// [自证通过] internal/dto/response.go
