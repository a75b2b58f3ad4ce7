package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/andresmonk7/tucajaBackEnd/internal/auth"
	"github.com/andresmonk7/tucajaBackEnd/internal/metrics"
	"github.com/andresmonk7/tucajaBackEnd/internal/model"
	"github.com/andresmonk7/tucajaBackEnd/internal/repository"
	"github.com/andresmonk7/tucajaBackEnd/internal/security"
	"github.com/andresmonk7/tucajaBackEnd/internal/token"
)

// --- 統合テスト用のインメモリリポジトリ ---

// memoryStore はユーザーと事業者をメモリ上に保持し、ユニーク制約を再現する。
type memoryStore struct {
	mu         sync.Mutex
	users      map[string]*model.User     // ID -> user
	businesses map[string]*model.Business // ID -> business
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      make(map[string]*model.User),
		businesses: make(map[string]*model.Business),
	}
}

type memoryUserRepo struct {
	store *memoryStore
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.GoogleID == googleID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, user *model.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == user.Email {
			return model.NewDuplicateEmailError()
		}
	}
	copied := *user
	r.store.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) CreateWithBusiness(ctx context.Context, user *model.User, business *model.Business) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, u := range r.store.users {
		if u.Email == user.Email {
			return model.NewDuplicateEmailError()
		}
	}
	for _, b := range r.store.businesses {
		if b.NIT == business.NIT {
			return model.NewDuplicateNITError()
		}
	}
	copiedUser := *user
	copiedBusiness := *business
	r.store.users[user.ID] = &copiedUser
	r.store.businesses[business.ID] = &copiedBusiness
	return nil
}

func (r *memoryUserRepo) SetGoogleID(ctx context.Context, userID, googleID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[userID]; ok {
		u.GoogleID = googleID
	}
	return nil
}

type memoryBusinessRepo struct {
	store *memoryStore
}

func (r *memoryBusinessRepo) FindByNIT(ctx context.Context, nit string) (*model.Business, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, b := range r.store.businesses {
		if b.NIT == nit {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

var _ repository.UserRepository = (*memoryUserRepo)(nil)
var _ repository.BusinessRepository = (*memoryBusinessRepo)(nil)

// --- 統合テスト用ルーター構築ヘルパー ---

// createIntegrationRouter は実サービス・実トークン発行器・インメモリリポジトリで
// ルーターを構築する。HTTP境界からサービス・リポジトリまでを通しで検証する。
func createIntegrationRouter(store *memoryStore, oauth auth.OAuthProvider) http.Handler {
	issuer := token.NewIssuer("integration-secret", time.Hour)
	hasher := security.NewHasher(bcrypt.MinCost)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	svc := auth.NewService(
		&memoryUserRepo{store: store},
		&memoryBusinessRepo{store: store},
		hasher,
		issuer,
		collector,
	)

	if oauth == nil {
		oauth = &mockOAuthProvider{}
	}

	return NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		TokenVerifier:     issuer,
		Metrics:           collector,
		Gatherer:          registry,
		AuthService:       svc,
		OAuthProvider:     oauth,
		AuthConfig:        testHandlerConfig(),
		HealthChecker:     &mockHealthChecker{},
	})
}

func postJSON(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// --- 統合テスト ---

func TestIntegration_RegisterLoginMe(t *testing.T) {
	router := createIntegrationRouter(newMemoryStore(), nil)

	// 1. 登録
	w := postJSON(router, "/auth/register", validRegisterBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want %d, body: %s", w.Code, http.StatusCreated, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "secret1") {
		t.Errorf("register response must not expose the password: %s", w.Body.String())
	}

	// 2. 登録したパスワードでログイン
	w = postJSON(router, "/auth/login", `{"email":"a@x.com","password_hash":"secret1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var loginResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &loginResp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	accessToken := loginResp["accessToken"]
	if accessToken == "" {
		t.Fatal("accessToken must be present")
	}

	// 3. 取得したトークンで自分の情報を取得
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	var meResp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &meResp); err != nil {
		t.Fatalf("failed to decode me response: %v", err)
	}
	if meResp["email"] != "a@x.com" {
		t.Errorf("email = %q, want %q", meResp["email"], "a@x.com")
	}
}

func TestIntegration_DuplicateRegistration(t *testing.T) {
	router := createIntegrationRouter(newMemoryStore(), nil)

	if w := postJSON(router, "/auth/register", validRegisterBody); w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d, body: %s", w.Code, w.Body.String())
	}

	// 同一メールアドレスでの再登録は409
	w := postJSON(router, "/auth/register", validRegisterBody)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate email status = %d, want %d", w.Code, http.StatusConflict)
	}

	// メールアドレスを変えてもNITが重複していれば409
	body := strings.Replace(validRegisterBody, "a@x.com", "b@x.com", 1)
	w = postJSON(router, "/auth/register", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate nit status = %d, want %d", w.Code, http.StatusConflict)
	}
	var resp apiErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != model.ErrCodeDuplicateNIT {
		t.Errorf("code = %q, want %q", resp.Code, model.ErrCodeDuplicateNIT)
	}
}

func TestIntegration_LoginWithWrongPassword(t *testing.T) {
	router := createIntegrationRouter(newMemoryStore(), nil)

	if w := postJSON(router, "/auth/register", validRegisterBody); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body: %s", w.Code, w.Body.String())
	}

	w := postJSON(router, "/auth/login", `{"email":"a@x.com","password_hash":"wrong-pass"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestIntegration_GoogleOAuthFlow(t *testing.T) {
	store := newMemoryStore()
	router := createIntegrationRouter(store, &mockOAuthProvider{})

	// 1. フロー開始: stateクッキーを取得
	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("google login status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	var stateCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	if stateCookie == nil {
		t.Fatal("state cookie must be set")
	}

	// 2. コールバック: 新規ユーザーが作成され、トークン付きリダイレクトが返る
	req = httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state="+stateCookie.Value, nil)
	req.AddCookie(stateCookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("callback status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}
	u, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("failed to parse redirect location: %v", err)
	}
	accessToken := u.Query().Get("token")
	if accessToken == "" {
		t.Fatalf("redirect must carry a token, got %q", u.String())
	}

	// 3. 作成されたユーザーはOAuth専用アカウントであること
	created, err := (&memoryUserRepo{store: store}).FindByGoogleID(context.Background(), "google-sub-123")
	if err != nil || created == nil {
		t.Fatalf("google user should exist: %v", err)
	}
	if created.UserType != model.UserTypeGoogle {
		t.Errorf("UserType = %q, want %q", created.UserType, model.UserTypeGoogle)
	}
	if created.PasswordHash != security.UnusablePasswordHash {
		t.Errorf("PasswordHash = %q, want sentinel", created.PasswordHash)
	}

	// 4. 発行されたトークンで/auth/meにアクセスできること
	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want %d, body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// 5. OAuth専用アカウントはパスワードログインできないこと
	w2 := postJSON(router, "/auth/login", `{"email":"g@x.com","password_hash":"secret1"}`)
	if w2.Code != http.StatusUnauthorized {
		t.Fatalf("password login for oauth-only account status = %d, want %d", w2.Code, http.StatusUnauthorized)
	}
}

func TestIntegration_GoogleLinksExistingAccount(t *testing.T) {
	store := newMemoryStore()
	router := createIntegrationRouter(store, &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*auth.GoogleAssertion, error) {
			return &auth.GoogleAssertion{
				Email:     "a@x.com",
				FirstName: "A",
				LastName:  "B",
				GoogleID:  "google-sub-999",
			}, nil
		},
	})

	if w := postJSON(router, "/auth/register", validRegisterBody); w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body: %s", w.Code, w.Body.String())
	}

	// 同一メールアドレスのGoogleログインは既存アカウントに連携される
	stateCookie := &http.Cookie{Name: oauthStateCookie, Value: "state-abc"}
	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=auth-code&state=state-abc", nil)
	req.AddCookie(stateCookie)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusTemporaryRedirect {
		t.Fatalf("callback status = %d, want %d", w.Code, http.StatusTemporaryRedirect)
	}

	linked, err := (&memoryUserRepo{store: store}).FindByGoogleID(context.Background(), "google-sub-999")
	if err != nil || linked == nil {
		t.Fatalf("linked user should exist: %v", err)
	}
	if linked.Email != "a@x.com" {
		t.Errorf("linked email = %q, want %q", linked.Email, "a@x.com")
	}

	// 連携後もパスワードログインは引き続き可能
	w2 := postJSON(router, "/auth/login", `{"email":"a@x.com","password_hash":"secret1"}`)
	if w2.Code != http.StatusOK {
		t.Fatalf("password login after linking status = %d, body: %s", w2.Code, w2.Body.String())
	}
}
