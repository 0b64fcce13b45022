package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"childhood-friend/internal/ai"
	appsvc "childhood-friend/internal/app"
	"childhood-friend/internal/bootstrap"
	"childhood-friend/internal/config"
	"childhood-friend/internal/platform/database"
	"childhood-friend/internal/platform/logger"
	"childhood-friend/internal/repository"
)

type stubLLM struct {
	mu    sync.Mutex
	reply string
	err   error
}

func (s *stubLLM) Complete(context.Context, []ai.ChatMessage, ai.CompletionOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reply, s.err
}

func (s *stubLLM) DescribeImage(context.Context, ai.VisionRequest) (string, error) {
	return "a photo", nil
}

type stubStore struct{}

func (stubStore) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://storage.test/" + key, nil
}

func (stubStore) EnsureFolder(context.Context, string) error { return nil }

type testServer struct {
	router *gin.Engine
	llm    *stubLLM
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(context.Background(), "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := logger.Nop()
	llm := &stubLLM{reply: "오늘은 좋은 날이에요"}
	userRepo := repository.NewUserRepository(db)
	personRepo := repository.NewPersonRepository(db)
	sessions := appsvc.NewSessionService(repository.NewChatSessionRepository(db), "gpt-4o-mini", time.UTC, log)
	conversation := appsvc.NewConversation(repository.NewChatMessageRepository(db), repository.NewMediaFileRepository(db), nil, log)

	cfg := &config.Config{
		App: config.AppConfig{
			Name:    "childhood-friend-test",
			GinMode: gin.TestMode,
			WebDir:  t.TempDir(),
			WSPath:  "/ws",
		},
		Auth: config.AuthConfig{JWTSecret: "test-secret", JWTExpireMinute: 60},
	}
	app := &bootstrap.App{
		Config: cfg,
		Log:    log,
		DB:     db,
		Services: bootstrap.Services{
			Auth:         appsvc.NewAuthService(userRepo, personRepo, cfg.Auth.JWTSecret, time.Hour, log),
			Chat:         appsvc.NewChatService(sessions, conversation, userRepo, llm, nil, 500, log),
			Sessions:     sessions,
			Conversation: conversation,
			Uploads:      appsvc.NewUploadService(sessions, conversation, stubStore{}, llm, log),
		},
		StartedAt: time.Now(),
	}
	return &testServer{router: NewRouter(app), llm: llm}
}

func (s *testServer) do(t *testing.T, method, path string, body any, header map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, out
}

func (s *testServer) register(t *testing.T, id string) {
	t.Helper()
	code, body := s.do(t, nethttp.MethodPost, "/register", gin.H{
		"id": id, "name": "Kim", "password": "pw1234", "birth": "1990-05-10 13:00",
	}, nil)
	if code != nethttp.StatusCreated || body["message"] != "Registance successful" {
		t.Fatalf("register: %d %v", code, body)
	}
}

func (s *testServer) login(t *testing.T, id string) string {
	t.Helper()
	code, body := s.do(t, nethttp.MethodPost, "/login", gin.H{"id": id, "password": "pw1234"}, nil)
	if code != nethttp.StatusOK || body["message"] != "Login successful" {
		t.Fatalf("login: %d %v", code, body)
	}
	return body["token"].(string)
}

func TestAccountFlow(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "kim01")
	token := s.login(t, "kim01")
	if token == "" {
		t.Fatalf("missing token")
	}

	code, body := s.do(t, nethttp.MethodPost, "/login", gin.H{"id": "kim01", "password": "nope"}, nil)
	if code != nethttp.StatusUnauthorized || body["message"] != "비밀번호가 틀렸습니다." || body["status"] != "NG" {
		t.Fatalf("wrong password: %d %v", code, body)
	}
	code, body = s.do(t, nethttp.MethodPost, "/login", gin.H{"id": "ghost", "password": "pw1234"}, nil)
	if code != nethttp.StatusUnauthorized || body["message"] != "존재하지 않는 아이디입니다." {
		t.Fatalf("unknown id: %d %v", code, body)
	}

	code, body = s.do(t, nethttp.MethodPost, "/register", gin.H{"id": "kim01", "name": "Lee", "password": "x"}, nil)
	if code != nethttp.StatusConflict || body["success"] != false {
		t.Fatalf("duplicate: %d %v", code, body)
	}

	code, body = s.do(t, nethttp.MethodPost, "/GetBirth", gin.H{"userId": "kim01"}, nil)
	if code != nethttp.StatusOK || body["message"] != "1990-05-10 13:00" {
		t.Fatalf("GetBirth: %d %v", code, body)
	}

	s.register(t, "lee02")
	code, body = s.do(t, nethttp.MethodPost, "/GetBirth", gin.H{"userId": "lee02"},
		map[string]string{"Authorization": "Bearer " + token})
	if code != nethttp.StatusForbidden || body["message"] != "ID가 다릅니다." {
		t.Fatalf("GetBirth mismatch: %d %v", code, body)
	}
}

func TestChildhoodFriendAndHistory(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "kim01")
	token := s.login(t, "kim01")

	code, body := s.do(t, nethttp.MethodPost, "/ChildhoodFriend", gin.H{
		"id":                "kim01",
		"myDateTime":        "1990-05-10 13:00",
		"userMessages":      []string{"오늘 운세 알려줘"},
		"assistantMessages": []string{},
	}, nil)
	if code != nethttp.StatusOK || body["success"] != true || body["assistant"] != "오늘은 좋은 날이에요" {
		t.Fatalf("chat: %d %v", code, body)
	}

	code, body = s.do(t, nethttp.MethodGet, "/api/v1/history", nil, map[string]string{"Authorization": "Bearer " + token})
	if code != nethttp.StatusOK {
		t.Fatalf("history: %d %v", code, body)
	}
	messages := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected question and answer, got %v", messages)
	}
	if first := messages[0].(map[string]any); first["q_a"] != "question" || first["message"] != "오늘 운세 알려줘" {
		t.Fatalf("unexpected first message: %v", first)
	}

	code, _ = s.do(t, nethttp.MethodGet, "/api/v1/history", nil, nil)
	if code != nethttp.StatusUnauthorized {
		t.Fatalf("history without token: %d", code)
	}

	s.llm.err = errors.New("rate limited")
	code, body = s.do(t, nethttp.MethodPost, "/ChildhoodFriend", gin.H{"id": "kim01", "userMessages": []string{"또?"}}, nil)
	if code != nethttp.StatusBadGateway || body["error"] != "Failed to fetch data from OpenAI API." {
		t.Fatalf("upstream failure: %d %v", code, body)
	}
}

func TestSessionEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, nethttp.MethodPost, "/session/create", gin.H{"userId": "kim01"}, nil)
	if code != nethttp.StatusOK || body["message"] != "세션이 생성되었습니다." {
		t.Fatalf("create: %d %v", code, body)
	}
	id := body["sessionId"].(string)

	code, body = s.do(t, nethttp.MethodPost, "/session/end", gin.H{}, nil)
	if code != nethttp.StatusBadRequest || body["error"] != "세션 ID가 필요합니다." {
		t.Fatalf("end without id: %d %v", code, body)
	}
	code, _ = s.do(t, nethttp.MethodPost, "/session/end", gin.H{"sessionId": "missing"}, nil)
	if code != nethttp.StatusNotFound {
		t.Fatalf("end unknown: %d", code)
	}

	code, body = s.do(t, nethttp.MethodPost, "/session/end", gin.H{"sessionId": id}, nil)
	if code != nethttp.StatusOK || body["message"] != "세션이 종료되었습니다." {
		t.Fatalf("end: %d %v", code, body)
	}
	session := body["session"].(map[string]any)
	if session["status"] != "closed" || session["ended_at"] == nil {
		t.Fatalf("session not closed: %v", session)
	}
}

func multipartImage(t *testing.T, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("id", "kim01")
	_ = w.WriteField("userMessages", "이 사진 어때?")

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="image"; filename="cat.jpg"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	_, _ = part.Write([]byte("fake-image-bytes"))
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func TestUploadImage(t *testing.T) {
	s := newTestServer(t)

	body, ct := multipartImage(t, "image/jpeg")
	req := httptest.NewRequest(nethttp.MethodPost, "/upload_image", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	if rec.Code != nethttp.StatusOK || out["message"] != "upload complete." || out["file_desc"] != "a photo" {
		t.Fatalf("upload: %d %v", rec.Code, out)
	}
	if url, _ := out["file_url"].(string); !strings.HasPrefix(url, "https://storage.test/uploads/kim01/") {
		t.Fatalf("unexpected file url: %v", out["file_url"])
	}

	body, ct = multipartImage(t, "text/plain")
	req = httptest.NewRequest(nethttp.MethodPost, "/upload_image", body)
	req.Header.Set("Content-Type", ct)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("non-image upload: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(nethttp.MethodPost, "/upload_image", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != nethttp.StatusBadRequest || !strings.Contains(rec.Body.String(), "No file exist.") {
		t.Fatalf("missing file: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, nethttp.MethodGet, "/healthz", nil, nil)
	if code != nethttp.StatusOK {
		t.Fatalf("healthz: %d %v", code, body)
	}
	deps := body["dependencies"].(map[string]any)
	if db := deps["database"].(map[string]any); db["ok"] != true {
		t.Fatalf("database not healthy: %v", db)
	}
	if r := deps["redis"].(map[string]any); r["ok"] != true || r["message"] != "disabled" {
		t.Fatalf("disabled redis must report ok: %v", r)
	}
	if st := deps["storage"].(map[string]any); st["required"] != false {
		t.Fatalf("storage without a client must be optional: %v", st)
	}
	if ff := deps["ffmpeg"].(map[string]any); ff["required"] != false {
		t.Fatalf("ffmpeg must never fail the probe: %v", ff)
	}
}
