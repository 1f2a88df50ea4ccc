package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/plannerhq/planner/internal/adapters/linkstore"
	"github.com/plannerhq/planner/internal/adapters/repository"
	"github.com/plannerhq/planner/internal/domain/entities"
	"github.com/plannerhq/planner/internal/infrastructure/config"
	"github.com/plannerhq/planner/internal/infrastructure/database/dbtest"
	"github.com/plannerhq/planner/internal/infrastructure/lock"
	"github.com/plannerhq/planner/internal/infrastructure/logger"
	"github.com/plannerhq/planner/internal/infrastructure/metrics"
	"github.com/plannerhq/planner/internal/ports"
)

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: make(map[string][]byte)}
}

func (m *memStorage) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return "http://files.test/" + key, nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.MentionNotification
}

func (r *recordingNotifier) NotifyMention(n ports.MentionNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

type fixture struct {
	t   *testing.T
	ctx context.Context

	users       ports.UserRepository
	boardsRepo  ports.BoardRepository
	columnsRepo ports.ColumnRepository
	cardsRepo   ports.CardRepository
	commentRepo ports.CommentRepository

	storage  *memStorage
	locker   lock.Locker
	notifier *recordingNotifier
	links    *linkstore.MemoryStore
	metrics  *metrics.Metrics

	auth        *AuthService
	userSvc     *UserService
	admin       *AdminService
	boards      *BoardService
	columns     *ColumnService
	cards       *CardService
	comments    *CommentService
	attachments *AttachmentService
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.New(t)
	log := logger.NewNop()

	f := &fixture{
		t:           t,
		ctx:         context.Background(),
		users:       repository.NewUserRepository(db),
		boardsRepo:  repository.NewBoardRepository(db),
		columnsRepo: repository.NewColumnRepository(db),
		cardsRepo:   repository.NewCardRepository(db),
		commentRepo: repository.NewCommentRepository(db),
		storage:     newMemStorage(),
		notifier:    &recordingNotifier{},
		links:       linkstore.NewMemoryStore(),
		metrics:     metrics.New(),
	}
	locker := lock.NewMemoryLocker()
	f.locker = locker
	attachmentRepo := repository.NewAttachmentRepository(db)

	f.auth = NewAuthService(f.users, config.JWTConfig{Secret: "test-secret", ExpiresIn: time.Hour, Issuer: "planner"}, 4, log)
	f.userSvc = NewUserService(f.users, f.links, log)
	f.admin = NewAdminService(f.users, repository.NewDepartmentRepository(db), f.storage, locker, 4, log)
	f.boards = NewBoardService(f.boardsRepo, f.users, f.storage, []string{"Por hacer", "En progreso", "Hecho"}, log)
	f.columns = NewColumnService(f.columnsRepo, f.boardsRepo, f.users, f.storage, locker, log)
	f.cards = NewCardService(f.cardsRepo, f.columnsRepo, f.boardsRepo, f.users, f.storage, locker, f.metrics, log)
	f.comments = NewCommentService(f.commentRepo, f.cardsRepo, f.boardsRepo, f.users, f.notifier, "http://planner.test/", log)
	f.attachments = NewAttachmentService(attachmentRepo, f.cardsRepo, f.boardsRepo, f.users, f.storage, config.StorageConfig{
		Folder:       "planner-attachments",
		MaxFileSize:  1024,
		AllowedTypes: []string{"pdf", ".png", "txt"},
	}, log)
	return f
}

func (f *fixture) user(name string) *entities.User {
	return f.userWithRole(name, entities.UserRoleUser)
}

func (f *fixture) userWithRole(name string, role entities.UserRole) *entities.User {
	u := &entities.User{Email: name + "@example.test", PasswordHash: "x", Name: name, Role: role, Active: true}
	require.NoError(f.t, f.users.Create(f.ctx, u))
	return u
}

// board creates a board through the service so it gets default columns.
func (f *fixture) board(owner *entities.User, name string) (*entities.Board, []*entities.Column) {
	b, err := f.boards.Create(f.ctx, owner.ID, ports.CreateBoardRequest{Name: name})
	require.NoError(f.t, err)
	detail, err := f.boards.Get(f.ctx, owner.ID, b.ID)
	require.NoError(f.t, err)
	return b, detail.Columns
}

func (f *fixture) card(actor *entities.User, column *entities.Column, title string) *entities.Card {
	c, err := f.cards.Create(f.ctx, actor.ID, column.ID, ports.CreateCardRequest{Title: title})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) titles(column *entities.Column) []string {
	cards, err := f.cardsRepo.ListByColumn(f.ctx, column.ID)
	require.NoError(f.t, err)
	out := make([]string, len(cards))
	for i, c := range cards {
		require.Equal(f.t, i, c.Position, "column %s is not dense", column.Name)
		out[i] = c.Title
	}
	return out
}

func upload(name, body string) ports.UploadRequest {
	return ports.UploadRequest{
		Filename:    name,
		ContentType: "application/octet-stream",
		Size:        int64(len(body)),
		Body:        bytes.NewBufferString(body),
	}
}
