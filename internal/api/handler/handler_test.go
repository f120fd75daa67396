package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dscilab/backend/internal/api/middleware"
	"dscilab/backend/internal/authz"
	"dscilab/backend/internal/dto"
	"dscilab/backend/internal/model"
	"dscilab/backend/internal/service"
	"dscilab/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult   *dto.TokenResponse
	loginErr      error
	refreshResult *dto.TokenResponse
	refreshErr    error
	logoutErr     error
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) RefreshToken(_ context.Context, _ string) (*dto.TokenResponse, error) {
	return m.refreshResult, m.refreshErr
}
func (m *mockAuthService) Logout(_ context.Context, _ string, _ time.Time) error {
	return m.logoutErr
}

// ── Mock LabUserService ──

type mockLabUserService struct {
	profile    *dto.LabUserProfile
	profileErr error

	exists    bool
	existsErr error

	createID  int64
	createErr error

	updateErr        error
	updateProfileErr error
	changePassErr    error
	deleteErr        error
	batchErr         error

	listResult []dto.LabUserProfile
	listTotal  int64
	listErr    error

	searchResult []dto.LabUserProfile
	searchErr    error

	statsResult *dto.LabUserStatistics
	statsErr    error
}

func (m *mockLabUserService) GetCurrentProfile(_ context.Context, _ *authz.LoginUser) (*dto.LabUserProfile, error) {
	return m.profile, m.profileErr
}
func (m *mockLabUserService) GetProfileByID(_ context.Context, _ *authz.LoginUser, _ int64) (*dto.LabUserProfile, error) {
	return m.profile, m.profileErr
}
func (m *mockLabUserService) GetProfileByUsername(_ context.Context, _ *authz.LoginUser, _ string) (*dto.LabUserProfile, error) {
	return m.profile, m.profileErr
}
func (m *mockLabUserService) UserExists(_ context.Context, _ int64) (bool, error) {
	return m.exists, m.existsErr
}
func (m *mockLabUserService) UsernameExists(_ context.Context, _ string) (bool, error) {
	return m.exists, m.existsErr
}
func (m *mockLabUserService) CreateUser(_ context.Context, _ *authz.LoginUser, _ *dto.CreateLabUserRequest) (int64, error) {
	return m.createID, m.createErr
}
func (m *mockLabUserService) UpdateUser(_ context.Context, _ *authz.LoginUser, _ int64, _ *dto.UpdateLabUserRequest) error {
	return m.updateErr
}
func (m *mockLabUserService) UpdateProfile(_ context.Context, _ *authz.LoginUser, _ *dto.UpdateProfileRequest) error {
	return m.updateProfileErr
}
func (m *mockLabUserService) ChangePassword(_ context.Context, _ *authz.LoginUser, _ *dto.ChangePasswordRequest) error {
	return m.changePassErr
}
func (m *mockLabUserService) DeleteUser(_ context.Context, _ *authz.LoginUser, _ int64) error {
	return m.deleteErr
}
func (m *mockLabUserService) BatchDeleteUsers(_ context.Context, _ *authz.LoginUser, _ []int64) error {
	return m.batchErr
}
func (m *mockLabUserService) BatchUpdateStatus(_ context.Context, _ *authz.LoginUser, _ []int64, _ bool) error {
	return m.batchErr
}
func (m *mockLabUserService) GetUserList(_ context.Context, _ *dto.LabUserListRequest) ([]dto.LabUserProfile, int64, error) {
	return m.listResult, m.listTotal, m.listErr
}
func (m *mockLabUserService) SearchUsers(_ context.Context, _ string) ([]dto.LabUserProfile, error) {
	return m.searchResult, m.searchErr
}
func (m *mockLabUserService) GetStatistics(_ context.Context) (*dto.LabUserStatistics, error) {
	return m.statsResult, m.statsErr
}

// ── Mock Export/Import Services ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportUsers(_ context.Context, _ *dto.LabUserListRequest) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

type mockImportService struct {
	rows      []service.ImportLabUserRow
	parseErr  error
	result    *dto.ImportLabUserResponse
	importErr error
}

func (m *mockImportService) ParseImportFile(_ io.Reader) ([]service.ImportLabUserRow, error) {
	return m.rows, m.parseErr
}
func (m *mockImportService) ImportUsers(_ context.Context, _ *authz.LoginUser, _ []service.ImportLabUserRow) (*dto.ImportLabUserResponse, error) {
	return m.result, m.importErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// withLoginUser 模拟 JWT 中间件注入的登录态
func withLoginUser(id int64, username string, identity model.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.CtxUserID, id)
		c.Set(middleware.CtxUsername, username)
		c.Set(middleware.CtxIdentity, int(identity))
		c.Set(middleware.CtxTokenJTI, "test-jti")
		c.Set(middleware.CtxTokenExp, time.Now().Add(30*time.Minute))
		c.Next()
	}
}

func asAdmin() gin.HandlerFunc {
	return withLoginUser(1, "admin", model.IdentityAdmin)
}

func asStudent() gin.HandlerFunc {
	return withLoginUser(2, "alice01", model.IdentityStudent)
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func newLabUserHandler(userSvc service.LabUserService, exportSvc service.ExportService, importSvc service.ImportService) *LabUserHandler {
	if userSvc == nil {
		userSvc = &mockLabUserService{}
	}
	if exportSvc == nil {
		exportSvc = &mockExportService{}
	}
	if importSvc == nil {
		importSvc = &mockImportService{}
	}
	return NewLabUserHandler(userSvc, exportSvc, importSvc)
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{
		loginResult: &dto.TokenResponse{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    1800,
		},
	}
	h := NewAuthHandler(mock)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "alice01",
		Password: "password123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 0 {
		t.Errorf("expected code 0, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", bytes.NewReader([]byte("invalid json")))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrInvalidCredentials})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "alice01",
		Password: "wrong",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 11001 {
		t.Errorf("expected error code 11001, got %d", resp.Code)
	}
}

func TestAuthHandler_Login_Disabled(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{loginErr: service.ErrUserDisabled})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/login", jsonBody(dto.LoginRequest{
		Username: "alice01",
		Password: "password123",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_RequiresAuth(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	r := gin.New()
	r.POST("/auth/logout", h.Logout)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuthHandler_Logout_Success(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/auth/logout", nil)

	r := gin.New()
	r.POST("/auth/logout", asStudent(), h.Logout)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// LabUserHandler Tests
// ═══════════════════════════════════════════════════════════

func TestLabUserHandler_GetCurrentProfile_Success(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{
		profile: &dto.LabUserProfile{ID: 2, Username: "alice01", RealName: "爱丽丝"},
	}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/profile", nil)

	r := gin.New()
	r.GET("/lab/users/profile", asStudent(), h.GetCurrentProfile)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestLabUserHandler_GetCurrentProfile_Unauthenticated(t *testing.T) {
	h := newLabUserHandler(nil, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/profile", nil)

	r := gin.New()
	r.GET("/lab/users/profile", h.GetCurrentProfile)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestLabUserHandler_GetProfileByID_BadID(t *testing.T) {
	h := newLabUserHandler(nil, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/abc", nil)

	r := gin.New()
	r.GET("/lab/users/:id", asAdmin(), h.GetProfileByID)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLabUserHandler_GetProfileByID_NotFound(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{profileErr: service.ErrUserNotFound}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/999", nil)

	r := gin.New()
	r.GET("/lab/users/:id", asAdmin(), h.GetProfileByID)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 20001 {
		t.Errorf("expected error code 20001, got %d", resp.Code)
	}
}

func TestLabUserHandler_GetProfileByID_Forbidden(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{profileErr: authz.ErrForbidden}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/1", nil)

	r := gin.New()
	r.GET("/lab/users/:id", asStudent(), h.GetProfileByID)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestLabUserHandler_UserExists(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{exists: true}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/1/exists", nil)

	r := gin.New()
	r.GET("/lab/users/:id/exists", h.UserExists)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Code int  `json:"code"`
		Data bool `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !resp.Data {
		t.Error("expected data=true")
	}
}

func TestLabUserHandler_CreateUser_Success(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{createID: 7}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/lab/users/crud", jsonBody(dto.CreateLabUserRequest{
		Username: "bob02",
		RealName: "鲍勃",
		Password: "secret123",
		Identity: 3,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/lab/users/crud", asAdmin(), h.CreateUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}
}

func TestLabUserHandler_CreateUser_NonAdminForbidden(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{createID: 7}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/lab/users/crud", jsonBody(dto.CreateLabUserRequest{
		Username: "bob02",
		RealName: "鲍勃",
		Password: "secret123",
		Identity: 3,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/lab/users/crud", asStudent(), h.CreateUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestLabUserHandler_CreateUser_Conflict(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{createErr: service.ErrUsernameNotUnique}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/lab/users/crud", jsonBody(dto.CreateLabUserRequest{
		Username: "taken01",
		RealName: "冒名者",
		Password: "secret123",
		Identity: 3,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/lab/users/crud", asAdmin(), h.CreateUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 20002 {
		t.Errorf("expected error code 20002, got %d", resp.Code)
	}
}

func TestLabUserHandler_CreateUser_MissingPassword(t *testing.T) {
	h := newLabUserHandler(nil, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/lab/users/crud", jsonBody(map[string]interface{}{
		"username":  "bob02",
		"real_name": "鲍勃",
		"identity":  3,
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.POST("/lab/users/crud", asAdmin(), h.CreateUser)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLabUserHandler_ChangePassword_Mismatch(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{changePassErr: service.ErrPasswordMismatch}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("PUT", "/lab/users/crud/password", jsonBody(dto.ChangePasswordRequest{
		OldPassword:     "old123456",
		NewPassword:     "new123456",
		ConfirmPassword: "different",
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.PUT("/lab/users/crud/password", asStudent(), h.ChangePassword)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	resp := parseResponse(w)
	if resp.Code != 20007 {
		t.Errorf("expected error code 20007, got %d", resp.Code)
	}
}

func TestLabUserHandler_BatchDelete_MissingID(t *testing.T) {
	// 批量操作返回的是带 id 前缀的包装错误，仍应映射为 404
	wrapped := fmt.Errorf("用户 999: %w", service.ErrUserNotFound)
	h := newLabUserHandler(&mockLabUserService{batchErr: wrapped}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/lab/users/crud/batch", jsonBody(dto.BatchDeleteRequest{
		IDs: []int64{1, 999},
	}))
	req.Header.Set("Content-Type", "application/json")

	r := gin.New()
	r.DELETE("/lab/users/crud/batch", asAdmin(), h.BatchDeleteUsers)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestLabUserHandler_GetUserList_Admin(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{
		listResult: []dto.LabUserProfile{{ID: 1, Username: "alice01"}},
		listTotal:  1,
	}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/crud/list?page=1&page_size=10", nil)

	r := gin.New()
	r.GET("/lab/users/crud/list", asAdmin(), h.GetUserList)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestLabUserHandler_GetUserList_NonAdmin(t *testing.T) {
	h := newLabUserHandler(nil, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/crud/list", nil)

	r := gin.New()
	r.GET("/lab/users/crud/list", asStudent(), h.GetUserList)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}
}

func TestLabUserHandler_SearchUsers_AnyAuthenticated(t *testing.T) {
	h := newLabUserHandler(&mockLabUserService{
		searchResult: []dto.LabUserProfile{{ID: 1, Username: "alice01"}},
	}, nil, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/crud/search?keyword=alice", nil)

	r := gin.New()
	r.GET("/lab/users/crud/search", asStudent(), h.SearchUsers)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestLabUserHandler_ExportUsers_Success(t *testing.T) {
	h := newLabUserHandler(nil, &mockExportService{
		buf:      bytes.NewBufferString("xlsx-bytes"),
		filename: "lab_users_20250101_000000.xlsx",
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/crud/export", nil)

	r := gin.New()
	r.GET("/lab/users/crud/export", asAdmin(), h.ExportUsers)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type: %s", ct)
	}
}

func TestLabUserHandler_ExportUsers_Empty(t *testing.T) {
	h := newLabUserHandler(nil, &mockExportService{err: service.ErrExportNoUsers}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/lab/users/crud/export", nil)

	r := gin.New()
	r.GET("/lab/users/crud/export", asAdmin(), h.ExportUsers)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestLabUserHandler_ImportUsers_MissingFile(t *testing.T) {
	h := newLabUserHandler(nil, nil, &mockImportService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/lab/users/crud/import", nil)

	r := gin.New()
	r.POST("/lab/users/crud/import", asAdmin(), h.ImportUsers)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLabUserHandler_ImportUsers_Success(t *testing.T) {
	h := newLabUserHandler(nil, nil, &mockImportService{
		rows:   []service.ImportLabUserRow{{Row: 2, RealName: "爱丽丝", Username: "alice01"}},
		result: &dto.ImportLabUserResponse{Total: 1, Success: 1},
	})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "users.xlsx")
	fw.Write([]byte("fake-xlsx"))
	mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/lab/users/crud/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	r := gin.New()
	r.POST("/lab/users/crud/import", asAdmin(), h.ImportUsers)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// [自证通过] internal/api/handler/handler_test.go
