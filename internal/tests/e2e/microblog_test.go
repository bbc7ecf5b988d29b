//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/microblog/apiserver/config"
	"github.com/microblog/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestPostLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	username := fmt.Sprintf("author_%d", time.Now().UnixNano())
	password := "testpass123!"

	registered, err := registerUser(t, baseURL, username, password)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	loggedIn, err := loginUser(t, baseURL, username, password)
	if err != nil {
		t.Fatalf("login user: %v", err)
	}
	if loggedIn.User.UserID != registered.User.UserID {
		t.Fatalf("login returned user %d, registered %d", loggedIn.User.UserID, registered.User.UserID)
	}

	post, err := createPost(t, baseURL, registered.Token, registered.User.UserID, "First post content")
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	if post.PostID == 0 {
		t.Fatalf("expected post ID to be set")
	}

	updated, err := updatePost(t, baseURL, registered.Token, post.PostID, "Edited post content")
	if err != nil {
		t.Fatalf("update post: %v", err)
	}
	if updated.Content != "Edited post content" {
		t.Fatalf("unexpected updated content: %q", updated.Content)
	}
	if updated.LastEdited == nil {
		t.Fatalf("expected lastEdited to be set after update")
	}

	patched, err := patchPost(t, baseURL, registered.Token, post.PostID, "Patched post content")
	if err != nil {
		t.Fatalf("patch post: %v", err)
	}
	if patched.Content != "Patched post content" {
		t.Fatalf("unexpected patched content: %q", patched.Content)
	}

	fetched, err := getPost(t, baseURL, post.PostID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if fetched.PostID != post.PostID {
		t.Fatalf("unexpected post id: %d", fetched.PostID)
	}
	if fetched.AuthorName != username {
		t.Fatalf("unexpected author name: %q", fetched.AuthorName)
	}

	comment, err := createComment(t, baseURL, registered.Token, post.PostID, registered.User.UserID, "Nice post")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if comment.CommentID == 0 {
		t.Fatalf("expected comment ID to be set")
	}

	if err := deletePost(t, baseURL, registered.Token, post.PostID); err != nil {
		t.Fatalf("delete post: %v", err)
	}

	if err := expectPostNotFound(t, baseURL, post.PostID); err != nil {
		t.Fatalf("expected deleted post to be missing: %v", err)
	}
}

func TestUnauthenticatedWritesRejected(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)

	body, _ := json.Marshal(map[string]any{
		"content":  "no token",
		"authorId": 1,
	})
	resp, err := http.Post(baseURL+"/posts", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post without token: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
}

type postResponse struct {
	PostID     int        `json:"postId"`
	Content    string     `json:"content"`
	LastEdited *time.Time `json:"lastEdited"`
	AuthorName string     `json:"authorName"`
}

type commentResponse struct {
	CommentID int    `json:"commentId"`
	Content   string `json:"content"`
}

type userResponse struct {
	UserID   int    `json:"userId"`
	UserName string `json:"userName"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func registerUser(t *testing.T, baseURL, username, password string) (authResponse, error) {
	t.Helper()

	payload := map[string]string{
		"userName":  username,
		"email":     fmt.Sprintf("%s@example.com", username),
		"password":  password,
		"birthDate": "1990-03-14",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return authResponse{}, err
	}

	resp, err := http.Post(baseURL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return authResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return authResponse{}, fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return authResponse{}, err
	}
	if parsed.Token == "" {
		return authResponse{}, fmt.Errorf("missing token in register response")
	}
	return parsed, nil
}

func loginUser(t *testing.T, baseURL, username, password string) (authResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"userName": username,
		"password": password,
	})
	if err != nil {
		return authResponse{}, err
	}

	resp, err := http.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return authResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return authResponse{}, fmt.Errorf("login status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return authResponse{}, err
	}
	return parsed, nil
}

func createPost(t *testing.T, baseURL, token string, authorID int, content string) (postResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"content":  content,
		"authorId": authorID,
	})
	if err != nil {
		return postResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/posts", bytes.NewReader(body))
	if err != nil {
		return postResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return postResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return postResponse{}, fmt.Errorf("create post status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed postResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return postResponse{}, err
	}
	return parsed, nil
}

func updatePost(t *testing.T, baseURL, token string, id int, content string) (postResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"postId":  id,
		"content": content,
	})
	if err != nil {
		return postResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/posts/%d", baseURL, id), bytes.NewReader(body))
	if err != nil {
		return postResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return postResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return postResponse{}, fmt.Errorf("update post status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed postResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return postResponse{}, err
	}
	return parsed, nil
}

func patchPost(t *testing.T, baseURL, token string, id int, content string) (postResponse, error) {
	t.Helper()

	body, err := json.Marshal([]map[string]any{
		{"op": "replace", "path": "/content", "value": content},
	})
	if err != nil {
		return postResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/posts/%d", baseURL, id), bytes.NewReader(body))
	if err != nil {
		return postResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json-patch+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return postResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return postResponse{}, fmt.Errorf("patch post status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed postResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return postResponse{}, err
	}
	return parsed, nil
}

func getPost(t *testing.T, baseURL string, id int) (postResponse, error) {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/posts/%d", baseURL, id))
	if err != nil {
		return postResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return postResponse{}, fmt.Errorf("get post status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed postResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return postResponse{}, err
	}
	return parsed, nil
}

func createComment(t *testing.T, baseURL, token string, postID, authorID int, content string) (commentResponse, error) {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"content":  content,
		"postId":   postID,
		"authorId": authorID,
	})
	if err != nil {
		return commentResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/comments", bytes.NewReader(body))
	if err != nil {
		return commentResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return commentResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return commentResponse{}, fmt.Errorf("create comment status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed commentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return commentResponse{}, err
	}
	return parsed, nil
}

func deletePost(t *testing.T, baseURL, token string, id int) error {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/posts/%d", baseURL, id), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete post status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func expectPostNotFound(t *testing.T, baseURL string, id int) error {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/posts/%d", baseURL, id))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("expected 404 after delete, got %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("BCRYPT_COST", "4")
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "microblog")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "microblog_db")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
