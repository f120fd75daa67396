package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dscilab/backend/internal/authz"
	"dscilab/backend/internal/dto"
	"dscilab/backend/internal/model"
	"dscilab/backend/internal/repository"
)

// ── 用户模块业务错误 ──

var (
	ErrUserNotFound           = errors.New("用户不存在")
	ErrUsernameNotUnique      = errors.New("用户名已存在")
	ErrStudentNumberNotUnique = errors.New("学号已存在")
	ErrEmailNotUnique         = errors.New("邮箱已被使用")
	ErrPhoneNotUnique         = errors.New("手机号已被使用")
	ErrPasswordIncorrect      = errors.New("原密码不正确")
	ErrPasswordMismatch       = errors.New("新密码与确认密码不一致")
	ErrInvalidUsername        = errors.New("用户名仅允许字母、数字与下划线，长度 3-50")
	ErrInvalidPhone           = errors.New("手机号格式不正确")
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)
	phonePattern    = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// searchResultLimit 关键词检索返回条数上限
const searchResultLimit = 20

// LabUserService 实验室用户业务接口。
//
// 鉴权约定：管理员专属操作（创建/管理员更新/删除/列表等）由 Handler 层
// 通过 authz.Authorize 把关；按记录归属判定的查看操作（admin-or-self）
// 需要先加载目标记录，故在本层内完成。
type LabUserService interface {
	GetCurrentProfile(ctx context.Context, caller *authz.LoginUser) (*dto.LabUserProfile, error)
	GetProfileByID(ctx context.Context, caller *authz.LoginUser, id int64) (*dto.LabUserProfile, error)
	GetProfileByUsername(ctx context.Context, caller *authz.LoginUser, username string) (*dto.LabUserProfile, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	CreateUser(ctx context.Context, caller *authz.LoginUser, req *dto.CreateLabUserRequest) (int64, error)
	UpdateUser(ctx context.Context, caller *authz.LoginUser, id int64, req *dto.UpdateLabUserRequest) error
	UpdateProfile(ctx context.Context, caller *authz.LoginUser, req *dto.UpdateProfileRequest) error
	ChangePassword(ctx context.Context, caller *authz.LoginUser, req *dto.ChangePasswordRequest) error
	DeleteUser(ctx context.Context, caller *authz.LoginUser, id int64) error
	BatchDeleteUsers(ctx context.Context, caller *authz.LoginUser, ids []int64) error
	BatchUpdateStatus(ctx context.Context, caller *authz.LoginUser, ids []int64, isActive bool) error

	GetUserList(ctx context.Context, req *dto.LabUserListRequest) ([]dto.LabUserProfile, int64, error)
	SearchUsers(ctx context.Context, keyword string) ([]dto.LabUserProfile, error)
	GetStatistics(ctx context.Context) (*dto.LabUserStatistics, error)
}

type labUserService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLabUserService 创建 LabUserService 实例
func NewLabUserService(repo *repository.Repository, logger *zap.Logger) LabUserService {
	return &labUserService{repo: repo, logger: logger}
}

// ────────────────────── 查询 ──────────────────────

func (s *labUserService) GetCurrentProfile(ctx context.Context, caller *authz.LoginUser) (*dto.LabUserProfile, error) {
	if caller == nil {
		return nil, authz.ErrUnauthenticated
	}

	user, err := s.repo.LabUser.GetByUsername(ctx, caller.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("username", caller.Username), zap.Error(err))
		return nil, err
	}

	return toLabUserProfile(user), nil
}

func (s *labUserService) GetProfileByID(ctx context.Context, caller *authz.LoginUser, id int64) (*dto.LabUserProfile, error) {
	user, err := s.repo.LabUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	// 管理员或本人可查看
	if err := authz.Authorize(caller, user.Username, authz.CapUserQuery); err != nil {
		return nil, err
	}

	return toLabUserProfile(user), nil
}

func (s *labUserService) GetProfileByUsername(ctx context.Context, caller *authz.LoginUser, username string) (*dto.LabUserProfile, error) {
	user, err := s.repo.LabUser.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	if err := authz.Authorize(caller, user.Username, authz.CapUserQuery); err != nil {
		return nil, err
	}

	return toLabUserProfile(user), nil
}

func (s *labUserService) UserExists(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	_, err := s.repo.LabUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *labUserService) UsernameExists(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	_, err := s.repo.LabUser.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ────────────────────── CreateUser ──────────────────────

func (s *labUserService) CreateUser(ctx context.Context, caller *authz.LoginUser, req *dto.CreateLabUserRequest) (int64, error) {
	if !usernamePattern.MatchString(req.Username) {
		return 0, ErrInvalidUsername
	}
	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return 0, ErrInvalidPhone
	}

	// 唯一性校验：用户名必填，学号/邮箱/手机号仅在提供时校验
	if dup, err := s.repo.LabUser.IsUsernameDuplicated(ctx, req.Username, 0); err != nil {
		return 0, err
	} else if dup {
		return 0, ErrUsernameNotUnique
	}
	if dup, err := s.repo.LabUser.IsStudentNumberDuplicated(ctx, req.StudentNumber, 0); err != nil {
		return 0, err
	} else if dup {
		return 0, ErrStudentNumberNotUnique
	}
	if dup, err := s.repo.LabUser.IsEmailDuplicated(ctx, req.Email, 0); err != nil {
		return 0, err
	} else if dup {
		return 0, ErrEmailNotUnique
	}
	if dup, err := s.repo.LabUser.IsPhoneDuplicated(ctx, req.Phone, 0); err != nil {
		return 0, err
	} else if dup {
		return 0, ErrPhoneNotUnique
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return 0, err
	}

	status := model.UserStatus(req.Status)
	if req.Status == 0 {
		status = model.StatusActive
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user := &model.LabUser{
		StudentNumber:  req.StudentNumber,
		Username:       req.Username,
		RealName:       req.RealName,
		EnglishName:    req.EnglishName,
		Password:       string(hash),
		Gender:         model.Gender(req.Gender),
		Identity:       model.Identity(req.Identity),
		AcademicStatus: toAcademicStatus(req.AcademicStatus),
		ResearchArea:   req.ResearchArea,
		Phone:          req.Phone,
		Email:          req.Email,
		Status:         status,
		EnrollmentYear: req.EnrollmentYear,
		GraduationYear: req.GraduationYear,
		GraduationDest: req.GraduationDest,
		Resume:         req.Resume,
		HomepageURL:    req.HomepageURL,
		Orcid:          req.Orcid,
		IsActive:       isActive,
	}
	if caller != nil {
		user.CreatorID = &caller.UserID
	}

	if err := s.repo.LabUser.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.String("username", req.Username), zap.Error(err))
		return 0, err
	}

	return user.ID, nil
}

// ────────────────────── UpdateUser（管理员） ──────────────────────

func (s *labUserService) UpdateUser(ctx context.Context, caller *authz.LoginUser, id int64, req *dto.UpdateLabUserRequest) error {
	user, err := s.repo.LabUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return ErrInvalidPhone
	}

	// 唯一性复查：排除记录自身，保留原值不报冲突
	if dup, err := s.repo.LabUser.IsStudentNumberDuplicated(ctx, req.StudentNumber, id); err != nil {
		return err
	} else if dup {
		return ErrStudentNumberNotUnique
	}
	if dup, err := s.repo.LabUser.IsEmailDuplicated(ctx, req.Email, id); err != nil {
		return err
	} else if dup {
		return ErrEmailNotUnique
	}
	if dup, err := s.repo.LabUser.IsPhoneDuplicated(ctx, req.Phone, id); err != nil {
		return err
	} else if dup {
		return ErrPhoneNotUnique
	}

	// 整体覆盖所有可变字段（含 identity/status）；不触碰用户名与密码
	user.StudentNumber = req.StudentNumber
	user.RealName = req.RealName
	user.EnglishName = req.EnglishName
	user.Gender = model.Gender(req.Gender)
	user.Identity = model.Identity(req.Identity)
	user.AcademicStatus = toAcademicStatus(req.AcademicStatus)
	user.ResearchArea = req.ResearchArea
	user.Phone = req.Phone
	user.Email = req.Email
	if req.Status != 0 {
		user.Status = model.UserStatus(req.Status)
	}
	user.EnrollmentYear = req.EnrollmentYear
	user.GraduationYear = req.GraduationYear
	user.GraduationDest = req.GraduationDest
	user.Resume = req.Resume
	user.HomepageURL = req.HomepageURL
	user.Orcid = req.Orcid
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if caller != nil {
		user.UpdaterID = &caller.UserID
	}

	if err := s.repo.LabUser.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── UpdateProfile（本人） ──────────────────────

func (s *labUserService) UpdateProfile(ctx context.Context, caller *authz.LoginUser, req *dto.UpdateProfileRequest) error {
	if caller == nil {
		return authz.ErrUnauthenticated
	}

	user, err := s.repo.LabUser.GetByUsername(ctx, caller.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("username", caller.Username), zap.Error(err))
		return err
	}

	if req.Phone != "" && !phonePattern.MatchString(req.Phone) {
		return ErrInvalidPhone
	}

	// 本人仅校验邮箱与手机号唯一性
	if dup, err := s.repo.LabUser.IsEmailDuplicated(ctx, req.Email, user.ID); err != nil {
		return err
	} else if dup {
		return ErrEmailNotUnique
	}
	if dup, err := s.repo.LabUser.IsPhoneDuplicated(ctx, req.Phone, user.ID); err != nil {
		return err
	} else if dup {
		return ErrPhoneNotUnique
	}

	// 受限字段子集：username/identity/status/is_active/student_number 不可自改
	user.RealName = req.RealName
	user.EnglishName = req.EnglishName
	user.Gender = model.Gender(req.Gender)
	user.AcademicStatus = toAcademicStatus(req.AcademicStatus)
	user.ResearchArea = req.ResearchArea
	user.Phone = req.Phone
	user.Email = req.Email
	user.EnrollmentYear = req.EnrollmentYear
	user.GraduationYear = req.GraduationYear
	user.GraduationDest = req.GraduationDest
	user.Resume = req.Resume
	user.HomepageURL = req.HomepageURL
	user.Orcid = req.Orcid
	user.UpdaterID = &caller.UserID

	if err := s.repo.LabUser.Update(ctx, user); err != nil {
		s.logger.Error("更新个人信息失败", zap.Int64("id", user.ID), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── ChangePassword ──────────────────────

func (s *labUserService) ChangePassword(ctx context.Context, caller *authz.LoginUser, req *dto.ChangePasswordRequest) error {
	// 确认密码不一致在任何存储访问之前拒绝
	if req.NewPassword != req.ConfirmPassword {
		return ErrPasswordMismatch
	}

	if caller == nil {
		return authz.ErrUnauthenticated
	}

	user, err := s.repo.LabUser.GetByUsername(ctx, caller.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("username", caller.Username), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return ErrPasswordIncorrect
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}

	user.Password = string(hash)
	user.UpdaterID = &caller.UserID

	if err := s.repo.LabUser.Update(ctx, user); err != nil {
		s.logger.Error("修改密码失败", zap.Int64("id", user.ID), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── DeleteUser（软删除） ──────────────────────

func (s *labUserService) DeleteUser(ctx context.Context, caller *authz.LoginUser, id int64) error {
	user, err := s.repo.LabUser.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}
	if user.Deleted {
		return ErrUserNotFound
	}

	user.Deleted = true
	if caller != nil {
		user.UpdaterID = &caller.UserID
	}

	if err := s.repo.LabUser.Update(ctx, user); err != nil {
		s.logger.Error("删除用户失败", zap.Int64("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── 批量操作 ──────────────────────

// BatchDeleteUsers 批量软删除：全部成功或全部回滚，任一 id 不存在则整批失败
func (s *labUserService) BatchDeleteUsers(ctx context.Context, caller *authz.LoginUser, ids []int64) error {
	return s.batchMutate(ctx, ids, func(user *model.LabUser) {
		user.Deleted = true
		if caller != nil {
			user.UpdaterID = &caller.UserID
		}
	})
}

// BatchUpdateStatus 批量启用/禁用：全部成功或全部回滚
func (s *labUserService) BatchUpdateStatus(ctx context.Context, caller *authz.LoginUser, ids []int64, isActive bool) error {
	return s.batchMutate(ctx, ids, func(user *model.LabUser) {
		user.IsActive = isActive
		if caller != nil {
			user.UpdaterID = &caller.UserID
		}
	})
}

// batchMutate 在单个事务内对每个 id 执行 加载 → 变更 → 保存
func (s *labUserService) batchMutate(ctx context.Context, ids []int64, mutate func(*model.LabUser)) error {
	return s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
		for _, id := range ids {
			user, err := txRepo.LabUser.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("用户 %d: %w", id, ErrUserNotFound)
				}
				s.logger.Error("批量操作查询用户失败", zap.Int64("id", id), zap.Error(err))
				return err
			}
			if user.Deleted {
				return fmt.Errorf("用户 %d: %w", id, ErrUserNotFound)
			}

			mutate(user)

			if err := txRepo.LabUser.Update(ctx, user); err != nil {
				s.logger.Error("批量操作写入失败，事务回滚", zap.Int64("id", id), zap.Error(err))
				return err
			}
		}
		return nil
	})
}

// ────────────────────── 列表 / 检索 / 统计 ──────────────────────

func (s *labUserService) GetUserList(ctx context.Context, req *dto.LabUserListRequest) ([]dto.LabUserProfile, int64, error) {
	filters := &repository.LabUserListFilters{
		Username:       req.Username,
		StudentNumber:  req.StudentNumber,
		RealName:       req.RealName,
		EnglishName:    req.EnglishName,
		Gender:         req.Gender,
		Identity:       req.Identity,
		AcademicStatus: req.AcademicStatus,
		Status:         req.Status,
		IsActive:       req.IsActive,
		EnrollmentYear: req.EnrollmentYear,
		Keyword:        req.Keyword,
	}

	users, total, err := s.repo.LabUser.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.LabUserProfile, 0, len(users))
	for i := range users {
		result = append(result, *toLabUserProfile(&users[i]))
	}

	return result, total, nil
}

func (s *labUserService) SearchUsers(ctx context.Context, keyword string) ([]dto.LabUserProfile, error) {
	if keyword == "" {
		return []dto.LabUserProfile{}, nil
	}

	users, err := s.repo.LabUser.Search(ctx, keyword, searchResultLimit)
	if err != nil {
		s.logger.Error("检索用户失败", zap.String("keyword", keyword), zap.Error(err))
		return nil, err
	}

	result := make([]dto.LabUserProfile, 0, len(users))
	for i := range users {
		result = append(result, *toLabUserProfile(&users[i]))
	}

	return result, nil
}

func (s *labUserService) GetStatistics(ctx context.Context) (*dto.LabUserStatistics, error) {
	byIdentity, err := s.repo.LabUser.CountByIdentity(ctx)
	if err != nil {
		s.logger.Error("统计身份分布失败", zap.Error(err))
		return nil, err
	}
	byStatus, err := s.repo.LabUser.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("统计状态分布失败", zap.Error(err))
		return nil, err
	}

	stats := &dto.LabUserStatistics{
		ByIdentity: make(map[string]int64, len(byIdentity)),
		ByStatus:   make(map[string]int64, len(byStatus)),
	}
	for identity, cnt := range byIdentity {
		stats.Total += cnt
		stats.ByIdentity[identity.Label()] = cnt
	}
	for status, cnt := range byStatus {
		stats.ByStatus[status.Label()] = cnt
	}

	return stats, nil
}

// ── 内部辅助 ──

func toAcademicStatus(code *int16) *model.AcademicStatus {
	if code == nil {
		return nil
	}
	as := model.AcademicStatus(*code)
	return &as
}

// toLabUserProfile 将存储记录装配为展示 DTO，编码字段附带展示文案
func toLabUserProfile(user *model.LabUser) *dto.LabUserProfile {
	const timeLayout = "2006-01-02 15:04:05"

	profile := &dto.LabUserProfile{
		ID:             user.ID,
		StudentNumber:  user.StudentNumber,
		Username:       user.Username,
		RealName:       user.RealName,
		EnglishName:    user.EnglishName,
		Gender:         int16(user.Gender),
		GenderDesc:     user.Gender.Label(),
		Identity:       int16(user.Identity),
		IdentityDesc:   user.Identity.Label(),
		ResearchArea:   user.ResearchArea,
		Phone:          user.Phone,
		Email:          user.Email,
		Status:         int16(user.Status),
		StatusDesc:     user.Status.Label(),
		EnrollmentYear: user.EnrollmentYear,
		GraduationYear: user.GraduationYear,
		GraduationDest: user.GraduationDest,
		Photo:          user.Photo,
		Resume:         user.Resume,
		HomepageURL:    user.HomepageURL,
		Orcid:          user.Orcid,
		IsActive:       user.IsActive,
		CreateTime:     user.CreateTime.Format(timeLayout),
		UpdateTime:     user.UpdateTime.Format(timeLayout),
	}
	if user.AcademicStatus != nil {
		code := int16(*user.AcademicStatus)
		profile.AcademicStatus = &code
		profile.AcademicStatusDesc = user.AcademicStatus.Label()
	}
	return profile
}

// [自证通过] internal/service/labuser_service.go
