package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/logging"
	"github.com/dmitrijs2005/tasktracker/internal/observability"
	"github.com/dmitrijs2005/tasktracker/internal/server/auth"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/google/uuid"
)

// ---- fakes ----

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	pw      map[string]string

	regErr   error
	loginErr error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*models.User{}, pw: map[string]string{}}
}

func (f *fakeUsers) Register(_ context.Context, username, email, password string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.regErr != nil {
		return nil, f.regErr
	}
	for _, u := range f.byEmail {
		if u.Username == username {
			return nil, common.ErrUsernameTaken
		}
	}
	if _, ok := f.byEmail[email]; ok {
		return nil, common.ErrEmailExists
	}
	now := time.Now().UTC()
	u := &models.User{ID: int64(len(f.byEmail) + 1), PID: uuid.New(), Username: username, Email: email, CreatedAt: now, UpdatedAt: now}
	f.byEmail[email] = u
	f.pw[email] = password
	return u, nil
}

func (f *fakeUsers) Login(_ context.Context, email, password string) (auth.Claims, *models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return auth.Claims{}, nil, f.loginErr
	}
	u, ok := f.byEmail[email]
	if !ok || f.pw[email] != password {
		return auth.Claims{}, nil, common.ErrUnauthorised
	}
	return auth.NewClaims(u.PID, time.Now(), time.Hour), u, nil
}

func (f *fakeUsers) FindByPID(_ context.Context, pid uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.PID == pid {
			return u, nil
		}
	}
	return nil, common.ErrEntityNotFound
}

// fakeTasks keeps tasks in memory and applies the same ownership rules as
// services.TaskService.
type fakeTasks struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*models.Task
	err    error
}

func newFakeTasks() *fakeTasks {
	return &fakeTasks{tasks: map[int64]*models.Task{}}
}

func (f *fakeTasks) Create(_ context.Context, owner uuid.UUID, title string, done bool) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	now := time.Now().UTC()
	t := &models.Task{ID: f.nextID, PID: uuid.New(), UserPID: owner, Title: title, Done: done, CreatedAt: now, UpdatedAt: now}
	f.tasks[t.ID] = t
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) FindAll(_ context.Context, owner uuid.UUID) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []models.Task{}
	for id := int64(1); id <= f.nextID; id++ {
		if t, ok := f.tasks[id]; ok && t.UserPID == owner {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTasks) FindOne(_ context.Context, owner uuid.UUID, id int64) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok || t.UserPID != owner {
		return nil, common.ErrEntityNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) Update(_ context.Context, owner uuid.UUID, id int64, patch models.TaskPatch) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, common.ErrEntityNotFound
	}
	if t.UserPID != owner {
		return nil, common.ErrNotOwner
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Done != nil {
		t.Done = *patch.Done
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (f *fakeTasks) Delete(_ context.Context, owner uuid.UUID, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return 0, common.ErrEntityNotFound
	}
	if t.UserPID != owner {
		return 0, common.ErrNotOwner
	}
	delete(f.tasks, id)
	return 1, nil
}

// fakeCodec hands out "tok-<n>" tokens and fails decoding with errs[token]
// when set.
type fakeCodec struct {
	mu     sync.Mutex
	issued map[string]auth.Claims
	errs   map[string]error
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{issued: map[string]auth.Claims{}, errs: map[string]error{}}
}

func (c *fakeCodec) Encode(claims auth.Claims) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok := "tok-" + claims.Subject.String()
	c.issued[tok] = claims
	return tok, nil
}

func (c *fakeCodec) Decode(token string) (auth.Claims, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.errs[token]; ok {
		return auth.Claims{}, err
	}
	claims, ok := c.issued[token]
	if !ok {
		return auth.Claims{}, common.ErrInvalidSignature
	}
	return claims, nil
}

// ---- helpers ----

type testEnv struct {
	srv     *HTTPServer
	handler http.Handler
	users   *fakeUsers
	tasks   *fakeTasks
	codec   *fakeCodec
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:   newFakeUsers(),
		tasks:   newFakeTasks(),
		codec:   newFakeCodec(),
		metrics: observability.New(),
	}
	env.srv = NewHTTPServer("127.0.0.1:0", Options{}, logging.Discard(), env.metrics, env.users, env.tasks, env.codec)
	env.handler = env.srv.Router()
	return env
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// signUp registers and logs in a user, returning its token and pid.
func (e *testEnv) signUp(t *testing.T, username string) (string, uuid.UUID) {
	t.Helper()
	email := username + "@example.com"
	body := `{"username":"` + username + `","email":"` + email + `","password":"password123","confirm_password":"password123"}`
	if rec := e.do(http.MethodPost, "/api/auth/register", body, ""); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	claims, _, err := e.users.Login(context.Background(), email, "password123")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	tok, _ := e.codec.Encode(claims)
	return tok, claims.Subject
}
