package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/tasktracker/internal/common"
	"github.com/dmitrijs2005/tasktracker/internal/dbx"
	"github.com/dmitrijs2005/tasktracker/internal/server/models"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/tasks"
	"github.com/dmitrijs2005/tasktracker/internal/server/repositories/users"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// fakeUsersRepo keeps users in memory and enforces the same uniqueness rules
// as the users table.
type fakeUsersRepo struct {
	mu     sync.Mutex
	byID   map[int64]*models.User
	nextID int64
	err    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byID: map[int64]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, existing := range f.byID {
		if existing.Username == u.Username {
			return nil, common.ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return nil, common.ErrEmailExists
		}
	}
	f.nextID++
	c := *u
	c.ID = f.nextID
	f.byID[c.ID] = &c
	return &c, nil
}

func (f *fakeUsersRepo) find(match func(u *models.User) bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.byID {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrEntityNotFound
}

func (f *fakeUsersRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsersRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUsersRepo) FindByPID(_ context.Context, pid uuid.UUID) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.PID == pid })
}

// fakeTasksRepo mimics the tasks table. deleteRows overrides the affected
// count reported by Delete.
type fakeTasksRepo struct {
	mu         sync.Mutex
	rows       map[int64]models.Task
	nextID     int64
	users      *fakeUsersRepo
	deleteRows int64
	writes     int
}

func newFakeTasksRepo(ur *fakeUsersRepo) *fakeTasksRepo {
	return &fakeTasksRepo{rows: map[int64]models.Task{}, users: ur}
}

func (f *fakeTasksRepo) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	if f.users != nil {
		if _, err := f.users.FindByPID(ctx, t.UserPID); err != nil {
			return nil, common.ErrUnauthorised
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := *t
	c.ID = f.nextID
	f.rows[c.ID] = c
	f.writes++
	return &c, nil
}

func (f *fakeTasksRepo) FindAll(_ context.Context, owner uuid.UUID) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Task, 0)
	for id := int64(1); id <= f.nextID; id++ {
		if t, ok := f.rows[id]; ok && t.UserPID == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasksRepo) FindOne(_ context.Context, owner uuid.UUID, id int64) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok || t.UserPID != owner {
		return nil, common.ErrEntityNotFound
	}
	return &t, nil
}

func (f *fakeTasksRepo) GetByIDForUpdate(_ context.Context, id int64) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, common.ErrEntityNotFound
	}
	return &t, nil
}

func (f *fakeTasksRepo) Update(_ context.Context, id int64, p models.TaskPatch) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[id]
	if !ok {
		return nil, common.ErrEntityNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	f.rows[id] = t
	f.writes++
	return &t, nil
}

func (f *fakeTasksRepo) Delete(_ context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteRows > 1 {
		return f.deleteRows, fmt.Errorf("%w: unexpected rows affected: %d", common.ErrDatabase, f.deleteRows)
	}
	if _, ok := f.rows[id]; !ok {
		return 0, common.ErrEntityNotFound
	}
	delete(f.rows, id)
	f.writes++
	return 1, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	t *fakeTasksRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.u }
func (m *fakeRepoManager) Tasks(dbx.DBTX) tasks.Repository              { return m.t }
