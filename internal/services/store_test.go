package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"geodrop-backend/internal/cache"
	"geodrop-backend/internal/clock"
	"geodrop-backend/internal/models"
	"geodrop-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory stand-in for the Postgres repositories
type memStore struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	messages map[int64]*models.Message
	reads    map[[2]int64]time.Time
	unlocks  map[[2]int64]time.Time
	follows  map[[2]int64]time.Time
	// ops records locks and writes in call order
	ops []string
}

func (s *memStore) record(op string, args ...any) {
	s.mu.Lock()
	s.ops = append(s.ops, fmt.Sprintf(op, args...))
	s.mu.Unlock()
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		messages: map[int64]*models.Message{},
		reads:    map[[2]int64]time.Time{},
		unlocks:  map[[2]int64]time.Time{},
		follows:  map[[2]int64]time.Time{},
	}
}

func (s *memStore) addUser(id int64, name string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: id, Name: name}
	s.users[id] = u
	return u
}

type (
	memTx       struct{ *memStore }
	memMessages struct{ *memStore }
	memReads    struct{ *memStore }
	memUnlocks  struct{ *memStore }
	memFollows  struct{ *memStore }
	memUsers    struct{ *memStore }
)

type txKey struct{}

// InTx serializes transactions, which is at least as strict as the
// per-author advisory lock
func (t memTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	t.txMu.Lock()
	defer t.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

func (t memTx) LockAuthor(ctx context.Context, _ int64) error {
	if ctx.Value(txKey{}) == nil {
		return fmt.Errorf("advisory lock requires a transaction")
	}
	return nil
}

func (t memTx) LockViewer(ctx context.Context, viewerID int64) error {
	if ctx.Value(txKey{}) == nil {
		return fmt.Errorf("advisory lock requires a transaction")
	}
	t.record("lock viewer %d", viewerID)
	return nil
}

func (r memMessages) Create(_ context.Context, msg *models.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[msg.AuthorID]; !ok {
		return fmt.Errorf("author does not exist: %w", repository.ErrNotFound)
	}
	r.nextID++
	msg.ID = r.nextID
	stored := *msg
	r.messages[msg.ID] = &stored
	return nil
}

func (r memMessages) GetByID(_ context.Context, id int64) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, fmt.Errorf("message not found: %w", repository.ErrNotFound)
	}
	return r.withAuthor(m), nil
}

func (r memMessages) CountByAuthorBetween(_ context.Context, authorID int64, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := clock.Window{Start: from, End: to}
	n := 0
	for _, m := range r.messages {
		if m.AuthorID == authorID && w.Contains(m.CreatedAt) {
			n++
		}
	}
	return n, nil
}

func (r memMessages) ListBetween(_ context.Context, from, to time.Time) ([]*models.Message, error) {
	return r.filter(newestFirst, func(m *models.Message) bool {
		return clock.Window{Start: from, End: to}.Contains(m.CreatedAt)
	}), nil
}

func (r memMessages) ListTopBetween(_ context.Context, from, to time.Time, limit int) ([]*models.Message, error) {
	out := r.filter(mostRead, func(m *models.Message) bool {
		return clock.Window{Start: from, End: to}.Contains(m.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memMessages) ListByAuthor(_ context.Context, authorID int64) ([]*models.Message, error) {
	return r.filter(newestFirst, func(m *models.Message) bool {
		return m.AuthorID == authorID
	}), nil
}

func (r memMessages) ListByAuthorBetween(_ context.Context, authorID int64, from, to time.Time) ([]*models.Message, error) {
	return r.filter(newestFirst, func(m *models.Message) bool {
		return m.AuthorID == authorID && clock.Window{Start: from, End: to}.Contains(m.CreatedAt)
	}), nil
}

func (r memMessages) IncrementReadCount(_ context.Context, id int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return 0, fmt.Errorf("message not found: %w", repository.ErrNotFound)
	}
	m.ReadCount++
	return m.ReadCount, nil
}

func newestFirst(a, b *models.Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func mostRead(a, b *models.Message) bool {
	if a.ReadCount != b.ReadCount {
		return a.ReadCount > b.ReadCount
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (r memMessages) filter(less func(a, b *models.Message) bool, keep func(*models.Message) bool) []*models.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Message{}
	for _, m := range r.messages {
		if keep(m) {
			out = append(out, r.withAuthor(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// withAuthor copies m and attaches the author summary; callers hold mu
func (r memMessages) withAuthor(m *models.Message) *models.Message {
	c := *m
	if u, ok := r.users[m.AuthorID]; ok {
		c.Author = &models.Author{ID: u.ID, Nickname: models.DisplayNickname(u.Nickname)}
	}
	return &c
}

func (r memReads) Record(_ context.Context, userID, messageID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{userID, messageID}
	if _, ok := r.reads[key]; ok {
		return false, nil
	}
	r.reads[key] = at
	r.ops = append(r.ops, fmt.Sprintf("read %d %d", userID, messageID))
	return true, nil
}

func (r memReads) Exists(_ context.Context, userID, messageID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.reads[[2]int64{userID, messageID}]
	return ok, nil
}

func (r memReads) ReadMessageIDs(_ context.Context, userID int64, messageIDs []int64) (map[int64]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[int64]bool{}
	for _, id := range messageIDs {
		if _, ok := r.reads[[2]int64{userID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (r memReads) CountByUserFromCreator(_ context.Context, userID, creatorID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key := range r.reads {
		if key[0] != userID {
			continue
		}
		if m, ok := r.messages[key[1]]; ok && m.AuthorID == creatorID {
			n++
		}
	}
	return n, nil
}

func (r memUnlocks) Create(_ context.Context, viewerID, creatorID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{viewerID, creatorID}
	if _, ok := r.unlocks[key]; ok {
		return false, nil
	}
	r.unlocks[key] = at
	return true, nil
}

func (r memUnlocks) Exists(_ context.Context, viewerID, creatorID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.unlocks[[2]int64{viewerID, creatorID}]
	return ok, nil
}

func (r memFollows) Create(_ context.Context, followerID, followingID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{followerID, followingID}
	if _, ok := r.follows[key]; ok {
		return false, nil
	}
	r.follows[key] = at
	return true, nil
}

func (r memFollows) Delete(_ context.Context, followerID, followingID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]int64{followerID, followingID}
	if _, ok := r.follows[key]; !ok {
		return false, nil
	}
	delete(r.follows, key)
	return true, nil
}

func (r memFollows) IsFollowing(_ context.Context, followerID, followingID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.follows[[2]int64{followerID, followingID}]
	return ok, nil
}

func (r memFollows) ListFollowers(_ context.Context, userID int64) ([]*models.FollowUser, error) {
	return r.list(userID, 1, 0), nil
}

func (r memFollows) ListFollowing(_ context.Context, userID int64) ([]*models.FollowUser, error) {
	return r.list(userID, 0, 1), nil
}

// list returns the other endpoint of every edge whose side `match` is userID
func (r memFollows) list(userID int64, match, other int) []*models.FollowUser {
	r.mu.Lock()
	defer r.mu.Unlock()
	type entry struct {
		at   time.Time
		user *models.FollowUser
	}
	var entries []entry
	for key, at := range r.follows {
		if key[match] != userID {
			continue
		}
		id := key[other]
		u := r.users[id]
		_, back := r.follows[[2]int64{key[1], key[0]}]
		entries = append(entries, entry{at: at, user: &models.FollowUser{
			ID: id, Name: u.Name, Nickname: u.Nickname, Bio: u.Bio, IsMutual: back,
		}})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].at.Equal(entries[j].at) {
			return entries[i].at.Before(entries[j].at)
		}
		return entries[i].user.ID < entries[j].user.ID
	})
	out := make([]*models.FollowUser, len(entries))
	for i, e := range entries {
		out[i] = e.user
	}
	return out
}

func (r memFollows) CountFollowers(_ context.Context, userID int64) (int64, error) {
	return r.count(userID, 1), nil
}

func (r memFollows) CountFollowing(_ context.Context, userID int64) (int64, error) {
	return r.count(userID, 0), nil
}

func (r memFollows) count(userID int64, side int) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for key := range r.follows {
		if key[side] == userID {
			n++
		}
	}
	return n
}

func (r memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", repository.ErrNotFound)
	}
	c := *u
	return &c, nil
}

func (r memUsers) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

// --- Mock MessageRepository for failure paths ---

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id int64) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockMessageRepo) CountByAuthorBetween(ctx context.Context, authorID int64, from, to time.Time) (int, error) {
	args := m.Called(ctx, authorID, from, to)
	return args.Int(0), args.Error(1)
}

func (m *mockMessageRepo) ListBetween(ctx context.Context, from, to time.Time) ([]*models.Message, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *mockMessageRepo) ListTopBetween(ctx context.Context, from, to time.Time, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, from, to, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *mockMessageRepo) ListByAuthor(ctx context.Context, authorID int64) ([]*models.Message, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *mockMessageRepo) ListByAuthorBetween(ctx context.Context, authorID int64, from, to time.Time) ([]*models.Message, error) {
	args := m.Called(ctx, authorID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *mockMessageRepo) IncrementReadCount(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

// --- Mock CountCache ---

type mockCountCache struct {
	mock.Mock
}

func (m *mockCountCache) Get(ctx context.Context, kind cache.CountKind, userID int64) (int64, bool, error) {
	args := m.Called(ctx, kind, userID)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

func (m *mockCountCache) Set(ctx context.Context, kind cache.CountKind, userID, count int64) error {
	return m.Called(ctx, kind, userID, count).Error(0)
}

func (m *mockCountCache) InvalidateEdge(ctx context.Context, followerID, followingID int64) error {
	return m.Called(ctx, followerID, followingID).Error(0)
}

// env wires every engine over one memStore and a fixed clock
type env struct {
	store    *memStore
	clock    *clock.FixedClock
	quota    *QuotaEngine
	reads    *ReadTracker
	unlocks  *UnlockEngine
	ranking  *RankingEngine
	follows  *FollowGraph
	messages *MessageService
	users    *UserService
}

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

const (
	testDailyLimit = 2
	testThreshold  = 2
	testHotRank    = 10
	testTopLimit   = 10
	testMaxTop     = 50
	testSecret     = "test-secret"
)

func newEnv() *env {
	return newEnvWith(nil, nil)
}

// newEnvWith builds an env, optionally replacing the message repository
// and the count cache
func newEnvWith(messages MessageRepository, counts CountCache) *env {
	store := newMemStore()
	clk := clock.NewFixedClock(testNow)
	if messages == nil {
		messages = memMessages{store}
	}
	users := memUsers{store}

	e := &env{store: store, clock: clk}
	e.quota = NewQuotaEngine(messages, clk, testDailyLimit)
	e.reads = NewReadTracker(memReads{store}, clk)
	e.unlocks = NewUnlockEngine(e.reads, memUnlocks{store}, clk, testThreshold)
	e.ranking = NewRankingEngine(messages, clk, testHotRank, testTopLimit, testMaxTop)
	e.follows = NewFollowGraph(memFollows{store}, users, counts, clk)
	e.messages = NewMessageService(memTx{store}, messages, users, e.quota, e.reads, e.unlocks, e.ranking, e.follows, clk)
	e.users = NewUserService(users, e.unlocks, testSecret, clk)
	return e
}

// seedMessage stores a message directly, bypassing the quota
func (e *env) seedMessage(authorID int64, readCount int, at time.Time) *models.Message {
	m := &models.Message{
		AuthorID:  authorID,
		Content:   "hello",
		Latitude:  52.52,
		Longitude: 13.405,
		ReadCount: readCount,
		CreatedAt: at,
	}
	if err := (memMessages{e.store}).Create(context.Background(), m); err != nil {
		panic(err)
	}
	return m
}

func newMessage(content string) models.NewMessage {
	lat, lon := 52.52, 13.405
	return models.NewMessage{Content: content, Latitude: &lat, Longitude: &lon}
}
