package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/microblog/apiserver/internal/auth"
	"github.com/microblog/apiserver/internal/store"
	"github.com/microblog/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository for service tests.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int]types.User{}, nextID: 1}
}

func (r *fakeUserRepo) Find(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindWithRelations(ctx context.Context, id int) (types.User, error) {
	return r.Find(ctx, id)
}

func (r *fakeUserRepo) List(_ context.Context, page, perPage int) ([]types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, r.users[id])
	}
	return paginate(users, page, perPage), nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user types.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return false, nil
	}
	r.users[user.ID] = user
	return true, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) (store.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.DeleteNotFound, nil
	}
	delete(r.users, id)
	return store.DeleteSuccess, nil
}

func (r *fakeUserRepo) Exists(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) FindByUserName(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := types.Normalize(username)
	for _, user := range r.users {
		if user.NormalizedUserName == normalized {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) FindWithRelationsByUserName(ctx context.Context, username string) (types.User, error) {
	return r.FindByUserName(ctx, username)
}

func (r *fakeUserRepo) UserNameExists(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := types.Normalize(username)
	for _, user := range r.users {
		if user.NormalizedUserName == normalized {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := types.Normalize(email)
	for _, user := range r.users {
		if user.NormalizedEmail == normalized {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) SetLastSignedIn(_ context.Context, id int, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.LastSignedIn = &at
	r.users[id] = user
	return nil
}

// fakePostRepo is an in-memory PostRepository for service tests.
type fakePostRepo struct {
	mu     sync.Mutex
	posts  map[int]types.Post
	nextID int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int]types.Post{}, nextID: 1}
}

func (r *fakePostRepo) Find(_ context.Context, id int) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return types.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (r *fakePostRepo) FindWithRelations(ctx context.Context, id int) (types.Post, error) {
	return r.Find(ctx, id)
}

func (r *fakePostRepo) List(_ context.Context, page, perPage int) ([]types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return paginate(r.newestFirst(), page, perPage), nil
}

func (r *fakePostRepo) ListWithAuthors(_ context.Context, page, perPage int) ([]types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return paginate(r.newestFirst(), page, perPage), nil
}

func (r *fakePostRepo) newestFirst() []types.Post {
	posts := make([]types.Post, 0, len(r.posts))
	for _, post := range r.posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].DatePosted.After(posts[j].DatePosted)
	})
	return posts
}

func (r *fakePostRepo) Create(_ context.Context, post types.Post) (types.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = r.nextID
	r.nextID++
	r.posts[post.ID] = post
	return post, nil
}

func (r *fakePostRepo) Update(_ context.Context, post types.Post) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; !ok {
		return false, nil
	}
	r.posts[post.ID] = post
	return true, nil
}

func (r *fakePostRepo) Delete(_ context.Context, id int) (store.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return store.DeleteNotFound, nil
	}
	delete(r.posts, id)
	return store.DeleteSuccess, nil
}

func (r *fakePostRepo) Exists(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.posts[id]
	return ok, nil
}

// fakeCommentRepo is an in-memory CommentRepository for service tests.
type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[int]types.Comment
	nextID   int
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{comments: map[int]types.Comment{}, nextID: 1}
}

func (r *fakeCommentRepo) Find(_ context.Context, id int) (types.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment, ok := r.comments[id]
	if !ok {
		return types.Comment{}, store.ErrNotFound
	}
	return comment, nil
}

func (r *fakeCommentRepo) FindWithRelations(ctx context.Context, id int) (types.Comment, error) {
	return r.Find(ctx, id)
}

func (r *fakeCommentRepo) List(_ context.Context, page, perPage int) ([]types.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.comments))
	for id := range r.comments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	comments := make([]types.Comment, 0, len(ids))
	for _, id := range ids {
		comments = append(comments, r.comments[id])
	}
	return paginate(comments, page, perPage), nil
}

func (r *fakeCommentRepo) Create(_ context.Context, comment types.Comment) (types.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = r.nextID
	r.nextID++
	r.comments[comment.ID] = comment
	return comment, nil
}

func (r *fakeCommentRepo) Update(_ context.Context, comment types.Comment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[comment.ID]; !ok {
		return false, nil
	}
	r.comments[comment.ID] = comment
	return true, nil
}

func (r *fakeCommentRepo) Delete(_ context.Context, id int) (store.DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return store.DeleteNotFound, nil
	}
	delete(r.comments, id)
	return store.DeleteSuccess, nil
}

func (r *fakeCommentRepo) Exists(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.comments[id]
	return ok, nil
}

func paginate[T any](items []T, page, perPage int) []T {
	if perPage < 1 {
		perPage = store.DefaultPerPage
	}
	offset := (page - 1) * perPage
	if offset >= len(items) {
		return nil
	}
	end := offset + perPage
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// fakeHasher is a deterministic PasswordHasher for tests.
type fakeHasher struct {
	hashErr error
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	return "hashed:" + password, nil
}

func (h *fakeHasher) Verify(hash, password string) auth.VerificationResult {
	if hash == "hashed:"+password {
		return auth.VerificationSuccess
	}
	return auth.VerificationFailed
}

// checkerFunc adapts a function to the ReferenceChecker interface.
type checkerFunc func(ctx context.Context, key int) (bool, error)

func (f checkerFunc) Exists(ctx context.Context, key int) (bool, error) {
	return f(ctx, key)
}

// capturePublisher records published events.
type capturePublisher struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
	err      error
}

func (p *capturePublisher) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.channels = append(p.channels, channel)
	p.payloads = append(p.payloads, data)
	return "msg-1", nil
}

var errBoom = errors.New("boom")
