// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/andresmonk7/tucajaBackEnd/internal/auth"
	"github.com/andresmonk7/tucajaBackEnd/internal/middleware"
	"github.com/andresmonk7/tucajaBackEnd/internal/model"
)

const oauthStateCookie = "oauth_state"

// フロントエンドへのリダイレクトに付与するエラーコード。
const (
	redirectErrGoogleAuthFailed = "google_auth_failed"
	redirectErrInternal         = "internal_server_error"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.RegisterResult, error)
	Login(ctx context.Context, email, password string) (string, error)
	LoginWithGoogle(ctx context.Context, assertion auth.GoogleAssertion) (string, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendURL  string
	CookieSecure bool
	CookieDomain string // 空の場合はホストのみに限定される
}

// AuthHandler は認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	oauth   auth.OAuthProvider
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, oauth auth.OAuthProvider, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		oauth:   oauth,
		config:  config,
	}
}

// registerRequest はユーザー登録のJSONボディ。
// password_hashフィールドには平文パスワードが入る（ワイヤ互換のため名称は維持）。
type registerRequest struct {
	Email        string  `json:"email"`
	PasswordHash string  `json:"password_hash"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	UserType     string  `json:"user_type"`
	BusinessName string  `json:"business_name"`
	NIT          string  `json:"nit"`
	BusinessType *string `json:"business_type"`
}

// loginRequest はログインのJSONボディ。
type loginRequest struct {
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
}

// registerResponse は登録成功レスポンス。
type registerResponse struct {
	Message string               `json:"message"`
	Data    *auth.RegisterResult `json:"data"`
}

// validationErrorResponse はフィールドごとの検証エラーを含むレスポンス。
type validationErrorResponse struct {
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Category string       `json:"category"`
	Action   string       `json:"action"`
	Fields   []FieldError `json:"fields"`
}

// Register はユーザーと事業者の登録を処理する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	if fieldErrs := validateRegisterRequest(&req); len(fieldErrs) > 0 {
		writeValidationErrorResponse(w, fieldErrs)
		return
	}

	in := auth.RegisterInput{
		Email:        req.Email,
		Password:     req.PasswordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		UserType:     req.UserType,
		BusinessName: req.BusinessName,
		NIT:          req.NIT,
	}
	if req.BusinessType != nil {
		in.BusinessType = *req.BusinessType
	}

	result, err := h.service.Register(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(registerResponse{
		Message: "ユーザー登録が完了しました。",
		Data:    result,
	})
}

// Login はパスワードログインを処理し、アクセストークンを返す。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	if fieldErrs := validateLoginRequest(&req); len(fieldErrs) > 0 {
		writeValidationErrorResponse(w, fieldErrs)
		return
	}

	accessToken, err := h.service.Login(r.Context(), req.Email, req.PasswordHash)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"accessToken": accessToken,
	})
}

// GoogleLogin はGoogle OAuthフローを開始する。
// GET /auth/google
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		WriteInternalError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback はOAuthコールバックを処理する。
// GET /auth/google/callback?code=xxx&state=yyy
// 成功時はトークンをクエリパラメータに付与してフロントエンドへリダイレクトし、
// 失敗時はエラーコードを付与してリダイレクトする。
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// 1. stateの検証（CSRF対策）
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != state {
		slog.Warn("oauth state mismatch",
			slog.String("query_state", state),
		)
		h.redirectWithError(w, r, redirectErrGoogleAuthFailed)
		return
	}

	// stateクッキーを削除
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	// 2. プロバイダー側でのキャンセル・拒否
	if errCode := r.URL.Query().Get("error"); errCode != "" {
		slog.Warn("oauth provider returned error", slog.String("error", errCode))
		h.redirectWithError(w, r, redirectErrGoogleAuthFailed)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, redirectErrGoogleAuthFailed)
		return
	}

	// 3. ハンドシェイクを完了し、検証済み表明を取得
	assertion, err := h.oauth.ExchangeCode(r.Context(), code)
	if err != nil {
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, redirectErrGoogleAuthFailed)
		return
	}

	// 4. ログインまたはサインアップし、トークンを発行
	accessToken, err := h.service.LoginWithGoogle(r.Context(), *assertion)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Category == "auth" {
			slog.Warn("google login rejected", slog.String("code", apiErr.Code))
			h.redirectWithError(w, r, redirectErrGoogleAuthFailed)
			return
		}
		slog.Error("google login failed", slog.String("error", err.Error()))
		h.redirectWithError(w, r, redirectErrInternal)
		return
	}

	// 5. トークンを付与してフロントエンドにリダイレクト
	http.Redirect(w, r, h.config.FrontendURL+"?token="+url.QueryEscape(accessToken), http.StatusTemporaryRedirect)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"id":        user.ID,
		"email":     user.Email,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"userType":  user.UserType,
	})
}

// redirectWithError はエラーコードを付与してフロントエンドにリダイレクトする。
func (h *AuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, errCode string) {
	http.Redirect(w, r, h.config.FrontendURL+"?error="+url.QueryEscape(errCode), http.StatusTemporaryRedirect)
}

// decodeStrict はJSONボディをデコードする。未知のフィールドは拒否する。
// 失敗時は400を書き込みfalseを返す。
func decodeStrict(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError())
		return false
	}
	return true
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
