package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"dscilab/backend/internal/model"
	"dscilab/backend/internal/repository"
)

// ── Mock LabUserRepository ──

type mockLabUserRepo struct {
	users  map[int64]*model.LabUser
	nextID int64

	// createErr 非 nil 时 Create 返回该错误（模拟写入失败）
	createErr error
}

func newMockLabUserRepo() *mockLabUserRepo {
	return &mockLabUserRepo{users: make(map[int64]*model.LabUser)}
}

func (m *mockLabUserRepo) Create(_ context.Context, user *model.LabUser) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	user.ID = m.nextID
	user.CreateTime = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(m.nextID) * time.Minute)
	user.UpdateTime = user.CreateTime
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockLabUserRepo) GetByID(_ context.Context, id int64) (*model.LabUser, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLabUserRepo) GetByUsername(_ context.Context, username string) (*model.LabUser, error) {
	for _, u := range m.users {
		if u.Username == username && !u.Deleted {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLabUserRepo) Update(_ context.Context, user *model.LabUser) error {
	if _, ok := m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	user.UpdateTime = user.CreateTime.Add(time.Hour)
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockLabUserRepo) List(_ context.Context, filters *repository.LabUserListFilters, offset, limit int) ([]model.LabUser, int64, error) {
	var matched []model.LabUser
	for _, u := range m.sortedByCreateTimeDesc() {
		if u.Deleted {
			continue
		}
		if filters != nil && !matchFilters(u, filters) {
			continue
		}
		matched = append(matched, *u)
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []model.LabUser{}, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func matchFilters(u *model.LabUser, f *repository.LabUserListFilters) bool {
	if f.Username != "" && !containsFold(u.Username, f.Username) {
		return false
	}
	if f.StudentNumber != "" && u.StudentNumber != f.StudentNumber {
		return false
	}
	if f.RealName != "" && !containsFold(u.RealName, f.RealName) {
		return false
	}
	if f.Gender != nil && int16(u.Gender) != *f.Gender {
		return false
	}
	if f.Identity != nil && int16(u.Identity) != *f.Identity {
		return false
	}
	if f.Status != nil && int16(u.Status) != *f.Status {
		return false
	}
	if f.IsActive != nil && u.IsActive != *f.IsActive {
		return false
	}
	if f.EnrollmentYear != nil && (u.EnrollmentYear == nil || *u.EnrollmentYear != *f.EnrollmentYear) {
		return false
	}
	if f.Keyword != "" {
		if !containsFold(u.RealName, f.Keyword) &&
			!containsFold(u.Username, f.Keyword) &&
			!containsFold(u.Email, f.Keyword) &&
			!containsFold(u.EnglishName, f.Keyword) {
			return false
		}
	}
	return true
}

func (m *mockLabUserRepo) Search(_ context.Context, keyword string, limit int) ([]model.LabUser, error) {
	var result []model.LabUser
	for _, u := range m.sortedByCreateTimeDesc() {
		if u.Deleted || !u.IsActive {
			continue
		}
		if !containsFold(u.RealName, keyword) &&
			!containsFold(u.Username, keyword) &&
			!containsFold(u.Email, keyword) &&
			!containsFold(u.EnglishName, keyword) {
			continue
		}
		result = append(result, *u)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *mockLabUserRepo) CountByIdentity(_ context.Context) (map[model.Identity]int64, error) {
	result := make(map[model.Identity]int64)
	for _, u := range m.users {
		if u.Deleted {
			continue
		}
		result[u.Identity]++
	}
	return result, nil
}

func (m *mockLabUserRepo) CountByStatus(_ context.Context) (map[model.UserStatus]int64, error) {
	result := make(map[model.UserStatus]int64)
	for _, u := range m.users {
		if u.Deleted {
			continue
		}
		result[u.Status]++
	}
	return result, nil
}

func (m *mockLabUserRepo) IsUsernameDuplicated(_ context.Context, username string, excludeID int64) (bool, error) {
	return m.isDuplicated(func(u *model.LabUser) string { return u.Username }, username, excludeID), nil
}

func (m *mockLabUserRepo) IsStudentNumberDuplicated(_ context.Context, studentNumber string, excludeID int64) (bool, error) {
	return m.isDuplicated(func(u *model.LabUser) string { return u.StudentNumber }, studentNumber, excludeID), nil
}

func (m *mockLabUserRepo) IsEmailDuplicated(_ context.Context, email string, excludeID int64) (bool, error) {
	return m.isDuplicated(func(u *model.LabUser) string { return u.Email }, email, excludeID), nil
}

func (m *mockLabUserRepo) IsPhoneDuplicated(_ context.Context, phone string, excludeID int64) (bool, error) {
	return m.isDuplicated(func(u *model.LabUser) string { return u.Phone }, phone, excludeID), nil
}

// isDuplicated 仅统计未删除行；空值视为未提供
func (m *mockLabUserRepo) isDuplicated(field func(*model.LabUser) string, value string, excludeID int64) bool {
	if value == "" {
		return false
	}
	for _, u := range m.users {
		if u.Deleted {
			continue
		}
		if excludeID > 0 && u.ID == excludeID {
			continue
		}
		if field(u) == value {
			return true
		}
	}
	return false
}

func (m *mockLabUserRepo) sortedByCreateTimeDesc() []*model.LabUser {
	all := make([]*model.LabUser, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreateTime.After(all[j].CreateTime)
	})
	return all
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// [自证通过] internal/service/mock_repos_test.go
