package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/veritext/veritext/internal/actor"
	apikeydomain "github.com/veritext/veritext/internal/apikey/domain"
	apikeyrepository "github.com/veritext/veritext/internal/apikey/repository"
	apikeyservice "github.com/veritext/veritext/internal/apikey/service"
	authdomain "github.com/veritext/veritext/internal/auth/domain"
	authrepository "github.com/veritext/veritext/internal/auth/repository"
	authservice "github.com/veritext/veritext/internal/auth/service"
	"github.com/veritext/veritext/internal/auth/token"
	"github.com/veritext/veritext/internal/authorization"
	"github.com/veritext/veritext/internal/clock"
	"github.com/veritext/veritext/internal/config"
	detectionclient "github.com/veritext/veritext/internal/detection/client"
	detectiondomain "github.com/veritext/veritext/internal/detection/domain"
	detectionrepository "github.com/veritext/veritext/internal/detection/repository"
	detectionservice "github.com/veritext/veritext/internal/detection/service"
	"github.com/veritext/veritext/internal/observability"
	obsmetrics "github.com/veritext/veritext/internal/observability/metrics"
	"github.com/veritext/veritext/internal/quota"
	teamdomain "github.com/veritext/veritext/internal/team/domain"
	teamrepository "github.com/veritext/veritext/internal/team/repository"
	teamservice "github.com/veritext/veritext/internal/team/service"
	usagedomain "github.com/veritext/veritext/internal/usage/domain"
	usagerepository "github.com/veritext/veritext/internal/usage/repository"
	"github.com/veritext/veritext/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	srv *Server
	db  *gorm.DB
}

func newTestServer(t *testing.T, backendHandler http.HandlerFunc) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if backendHandler == nil {
		backendHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"score":0.8,"threshold":0.5,"label":"AI","model_name":"det-v2"}`))
		}
	}
	backend := httptest.NewServer(backendHandler)
	t.Cleanup(backend.Close)

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	err = dbConn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Profile{},
		&apikeydomain.APIKey{},
		&detectiondomain.Detection{},
		&usagedomain.UsageRecord{},
		&teamdomain.Team{},
		&teamdomain.TeamMember{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	cfg := config.Config{
		HTTPAddr:       ":0",
		AuthJWTSecret:  "test-secret",
		AccessTokenTTL: 30 * time.Minute,
		GuestTokenTTL:  24 * time.Hour,
		Detect:         config.DetectConfig{BaseURL: backend.URL, Timeout: 2 * time.Second},
		Quota: config.QuotaConfig{
			GuestDailyLimit: 5000,
			UserDailyLimit:  30000,
		},
	}

	codec := token.New(token.Params{Config: cfg, Clock: clk})
	authRepo := authrepository.New(dbConn)
	authSvc := authservice.New(authservice.Params{
		Log:   log,
		Repo:  authRepo,
		Codec: codec,
		GenID: node,
		Clock: clk,
	})
	apiKeySvc := apikeyservice.New(apikeyservice.Params{
		DB:       dbConn,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     apikeyrepository.Provide(),
		AuthRepo: authRepo,
	})
	usageRepo := usagerepository.Provide()
	quotaSvc := quota.NewService(quota.Params{
		DB:     dbConn,
		Log:    log,
		Usage:  usageRepo,
		Clock:  clk,
		Config: cfg,
	})
	detectionSvc := detectionservice.New(detectionservice.Params{
		DB:        dbConn,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Repo:      detectionrepository.Provide(),
		UsageRepo: usageRepo,
		Quota:     quotaSvc,
		Client: detectionclient.New(detectionclient.Params{
			Config: cfg,
			Log:    log,
		}),
	})
	teamSvc := teamservice.New(teamservice.Params{
		DB:       dbConn,
		Log:      log,
		GenID:    node,
		Clock:    clk,
		Repo:     teamrepository.Provide(),
		AuthRepo: authRepo,
	})
	resolver := actor.NewResolver(actor.Params{
		Log:   log,
		Keys:  apiKeySvc,
		Codec: codec,
		Users: authRepo,
	})

	httpMetrics, err := obsmetrics.NewHTTPMetrics()
	if err != nil {
		t.Fatalf("failed to build metrics: %v", err)
	}
	engine := NewEngine(observability.Config{Environment: "test"}, httpMetrics)

	srv := NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Resolver:     resolver,
		Authsvc:      authSvc,
		AuthzSvc:     authorization.NewService(authorization.Params{Log: log}),
		APIKeySvc:    apiKeySvc,
		QuotaSvc:     quotaSvc,
		DetectionSvc: detectionSvc,
		TeamSvc:      teamSvc,
	})

	return &fixture{srv: srv, db: dbConn}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error envelope in %q", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func (f *fixture) registerUser(t *testing.T, email string) (token string, userID string) {
	t.Helper()

	name := strings.SplitN(email, "@", 2)[0]
	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"name":     name,
		"password": "correct-horse",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	tokenObj := body["token"].(map[string]any)
	userObj := body["user"].(map[string]any)
	return tokenObj["access_token"].(string), userObj["id"].(string)
}

func (f *fixture) guestToken(t *testing.T) string {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/auth/guest", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("guest token = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["access_token"].(string)
}

func (f *fixture) setRole(t *testing.T, userID, role string) {
	t.Helper()
	tx := f.db.Exec(`UPDATE users SET role = ? WHERE id = ?`, role, userID)
	if tx.Error != nil || tx.RowsAffected != 1 {
		t.Fatalf("set role: err=%v affected=%d", tx.Error, tx.RowsAffected)
	}
}

func TestRegisterLoginAndMe(t *testing.T) {
	f := newTestServer(t, nil)

	tok, _ := f.registerUser(t, "alice@example.com")

	rec := f.do(t, http.MethodGet, "/auth/me", nil, bearer(tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["email"] != "alice@example.com" || body["role"] != "individual" {
		t.Fatalf("me body = %v", body)
	}

	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"identifier": "alice",
		"password":   "correct-horse",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newTestServer(t, nil)
	f.registerUser(t, "alice@example.com")

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "ALICE@example.com",
		"name":     "other",
		"password": "correct-horse",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "EMAIL_EXISTS" {
		t.Fatalf("code = %q", code)
	}
}

func TestLoginUnknownUserVsWrongPassword(t *testing.T) {
	f := newTestServer(t, nil)
	f.registerUser(t, "alice@example.com")

	rec := f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"identifier": "nobody@example.com",
		"password":   "whatever-pass",
	}, nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "USER_NOT_FOUND" {
		t.Fatalf("unknown user: %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"identifier": "alice@example.com",
		"password":   "wrong-password",
	}, nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_PASSWORD" {
		t.Fatalf("wrong password: %d %s", rec.Code, rec.Body.String())
	}
}

func TestNoCredential(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/detect", map[string]string{"text": "hello"}, nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "CREDENTIAL_REQUIRED" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestDisabledAccountBearerIsUnauthorized(t *testing.T) {
	f := newTestServer(t, nil)

	tok, userID := f.registerUser(t, "alice@example.com")

	tx := f.db.Exec(`UPDATE users SET is_active = ? WHERE id = ?`, false, userID)
	if tx.Error != nil || tx.RowsAffected != 1 {
		t.Fatalf("disable account: err=%v affected=%d", tx.Error, tx.RowsAffected)
	}

	// A credential resolving to a disabled account is an invalid
	// credential; only the login flow says the account is disabled.
	rec := f.do(t, http.MethodGet, "/auth/me", nil, bearer(tok))
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_CREDENTIALS" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"identifier": "alice@example.com",
		"password":   "correct-horse",
	}, nil)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "ACCOUNT_DISABLED" {
		t.Fatalf("login = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterMalformedEmail(t *testing.T) {
	f := newTestServer(t, nil)

	rec := f.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email":    "not-an-email",
		"name":     "someone",
		"password": "correct-horse",
	}, nil)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "INVALID_REQUEST" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGuestDetectAndQuota(t *testing.T) {
	f := newTestServer(t, nil)
	tok := f.guestToken(t)

	rec := f.do(t, http.MethodPost, "/detect", map[string]string{"text": "0123456789"}, bearer(tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("detect = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["label"] != "ai" {
		t.Fatalf("label = %v", body["label"])
	}
	if _, hasID := body["detection_id"]; hasID {
		t.Fatalf("guest response carries detection_id: %v", body)
	}

	rec = f.do(t, http.MethodGet, "/quota", nil, bearer(tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("quota = %d: %s", rec.Code, rec.Body.String())
	}
	quotaBody := decodeBody(t, rec)
	if quotaBody["actor_type"] != "guest" || quotaBody["used_today"] != float64(10) || quotaBody["remaining"] != float64(4990) {
		t.Fatalf("quota body = %v", quotaBody)
	}
}

func TestGuestCannotListHistory(t *testing.T) {
	f := newTestServer(t, nil)
	tok := f.guestToken(t)

	rec := f.do(t, http.MethodGet, "/detections", nil, bearer(tok))
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "INSUFFICIENT_ROLE" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestQuotaExceededEnvelope(t *testing.T) {
	f := newTestServer(t, nil)
	tok := f.guestToken(t)

	long := strings.Repeat("a", 4000)
	if rec := f.do(t, http.MethodPost, "/detect", map[string]string{"text": long}, bearer(tok)); rec.Code != http.StatusOK {
		t.Fatalf("first detect = %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/detect", map[string]string{"text": strings.Repeat("a", 2000)}, bearer(tok))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	errObj := body["error"].(map[string]any)
	if errObj["code"] != "QUOTA_EXCEEDED" || errObj["limit"] != float64(5000) || errObj["used"] != float64(4000) || errObj["remaining"] != float64(1000) {
		t.Fatalf("envelope = %v", errObj)
	}
}

func TestDetectBackendDown(t *testing.T) {
	f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	})
	tok := f.guestToken(t)

	rec := f.do(t, http.MethodPost, "/detect", map[string]string{"text": "hello"}, bearer(tok))
	if rec.Code != http.StatusBadGateway || errorCode(t, rec) != "DETECT_BACKEND_ERROR" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestEmptyText(t *testing.T) {
	f := newTestServer(t, nil)
	tok := f.guestToken(t)

	rec := f.do(t, http.MethodPost, "/detect", map[string]string{"text": "   "}, bearer(tok))
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "EMPTY_TEXT" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHistoryFlow(t *testing.T) {
	f := newTestServer(t, nil)
	tok, _ := f.registerUser(t, "alice@example.com")

	rec := f.do(t, http.MethodPost, "/detect", map[string]string{"text": "a draft paragraph"}, bearer(tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("detect = %d: %s", rec.Code, rec.Body.String())
	}
	detectionID := decodeBody(t, rec)["detection_id"].(string)

	rec = f.do(t, http.MethodGet, "/detections", nil, bearer(tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d: %s", rec.Code, rec.Body.String())
	}
	items := decodeBody(t, rec)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}

	rec = f.do(t, http.MethodPatch, "/history/"+detectionID, map[string]string{"title": "my essay"}, bearer(tok))
	if rec.Code != http.StatusOK {
		t.Fatalf("rename = %d: %s", rec.Code, rec.Body.String())
	}
	if title := decodeBody(t, rec)["title"]; title != "my essay" {
		t.Fatalf("title = %v", title)
	}

	rec = f.do(t, http.MethodDelete, "/history/"+detectionID, nil, bearer(tok))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/history/"+detectionID, nil, bearer(tok))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", rec.Code)
	}

	// History is gone but the quota ledger still counts the characters.
	rec = f.do(t, http.MethodGet, "/quota", nil, bearer(tok))
	if used := decodeBody(t, rec)["used_today"]; used != float64(len("a draft paragraph")) {
		t.Fatalf("used_today = %v", used)
	}
}

func TestAPIKeyFlow(t *testing.T) {
	f := newTestServer(t, nil)
	tok, _ := f.registerUser(t, "alice@example.com")

	rec := f.do(t, http.MethodPost, "/keys", map[string]string{"name": "ci"}, bearer(tok))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create key = %d: %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)
	plaintext := created["api_key"].(string)
	keyID := created["id"].(string)
	if !strings.HasPrefix(plaintext, "vt_live_") {
		t.Fatalf("plaintext = %q", plaintext)
	}

	// The key authenticates on its own.
	rec = f.do(t, http.MethodGet, "/keys/self-test", nil, map[string]string{"X-API-Key": plaintext})
	if rec.Code != http.StatusOK {
		t.Fatalf("self-test = %d: %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["actor_type"] != "user" {
		t.Fatalf("self-test body = %v", body)
	}

	// A bad key fails even with a valid bearer alongside.
	rec = f.do(t, http.MethodGet, "/keys/self-test", nil, map[string]string{
		"X-API-Key":     "vt_live_bogus",
		"Authorization": "Bearer " + tok,
	})
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "INVALID_API_KEY" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodDelete, "/keys/"+keyID, nil, bearer(tok))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("deactivate = %d", rec.Code)
	}
	rec = f.do(t, http.MethodGet, "/keys/self-test", nil, map[string]string{"X-API-Key": plaintext})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deactivated key = %d", rec.Code)
	}
}

func TestTeamRoutes(t *testing.T) {
	f := newTestServer(t, nil)
	adminTok, adminID := f.registerUser(t, "owner@example.com")
	memberTok, _ := f.registerUser(t, "member@example.com")

	// An individual cannot create teams.
	rec := f.do(t, http.MethodPost, "/teams", map[string]string{"name": "acme"}, bearer(adminTok))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("create before promotion = %d", rec.Code)
	}

	f.setRole(t, adminID, "team_admin")

	rec = f.do(t, http.MethodPost, "/teams", map[string]string{"name": "acme"}, bearer(adminTok))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create team = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/teams/members", map[string]string{"email": "member@example.com"}, bearer(adminTok))
	if rec.Code != http.StatusCreated {
		t.Fatalf("add member = %d: %s", rec.Code, rec.Body.String())
	}

	// The plain member can read the team but not mutate it.
	rec = f.do(t, http.MethodGet, "/teams/me", nil, bearer(memberTok))
	if rec.Code != http.StatusOK {
		t.Fatalf("member team view = %d: %s", rec.Code, rec.Body.String())
	}
	rec = f.do(t, http.MethodPost, "/teams/members", map[string]string{"email": "owner@example.com"}, bearer(memberTok))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("member add = %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	f := newTestServer(t, nil)
	adminTok, adminID := f.registerUser(t, "root@example.com")
	_, otherID := f.registerUser(t, "other@example.com")

	rec := f.do(t, http.MethodGet, "/admin/users", nil, bearer(adminTok))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("individual on admin route = %d", rec.Code)
	}

	f.setRole(t, adminID, "sys_admin")

	rec = f.do(t, http.MethodGet, "/admin/users", nil, bearer(adminTok))
	if rec.Code != http.StatusOK {
		t.Fatalf("list users = %d: %s", rec.Code, rec.Body.String())
	}
	if users := decodeBody(t, rec)["users"].([]any); len(users) != 2 {
		t.Fatalf("users = %d", len(users))
	}

	rec = f.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%s/role", otherID), map[string]string{"role": "team_admin"}, bearer(adminTok))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set role = %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%s/role", otherID), map[string]string{"role": "superuser"}, bearer(adminTok))
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "INVALID_ROLE" {
		t.Fatalf("bad role = %d %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPatch, fmt.Sprintf("/admin/users/%s/status", otherID), map[string]bool{"is_active": false}, bearer(adminTok))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("disable = %d: %s", rec.Code, rec.Body.String())
	}

	// The disabled account can no longer authenticate.
	rec = f.do(t, http.MethodPost, "/auth/login", map[string]string{
		"identifier": "other@example.com",
		"password":   "correct-horse",
	}, nil)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "ACCOUNT_DISABLED" {
		t.Fatalf("disabled login = %d %s", rec.Code, rec.Body.String())
	}
}
