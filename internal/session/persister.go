package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Persister is the durable storage behind a Store. It holds one value: the
// bearer token string. Read returns ErrNoCredential when nothing is stored.
type Persister interface {
	Read(ctx context.Context) (string, error)
	Write(ctx context.Context, credential string) error
	Delete(ctx context.Context) error
}

// FilePersister keeps the token in a single file with mode 0600.
type FilePersister struct {
	Path string
}

// NewFilePersister returns a persister for path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

func (p *FilePersister) Read(ctx context.Context) (string, error) {
	data, err := os.ReadFile(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	credential := strings.TrimSpace(string(data))
	if credential == "" {
		return "", ErrNoCredential
	}
	return credential, nil
}

// Write replaces the file atomically so a crash never leaves a torn token.
func (p *FilePersister) Write(ctx context.Context, credential string) error {
	dir := filepath.Dir(p.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if _, err := tmp.WriteString(credential + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.Path); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (p *FilePersister) Delete(ctx context.Context) error {
	if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// RedisPersister keeps the token under a single Redis key.
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister wraps an existing client.
func NewRedisPersister(client *redis.Client, key string) *RedisPersister {
	if client == nil {
		panic("session.NewRedisPersister: client is nil")
	}
	return &RedisPersister{client: client, key: key}
}

// DialRedisPersister parses a redis:// URL and returns a persister for key.
func DialRedisPersister(rawURL, key string) (*RedisPersister, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis_url: %w", err)
	}
	return NewRedisPersister(redis.NewClient(opts), key), nil
}

func (p *RedisPersister) Read(ctx context.Context) (string, error) {
	val, err := p.client.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", p.key, err)
	}
	if val == "" {
		return "", ErrNoCredential
	}
	return val, nil
}

func (p *RedisPersister) Write(ctx context.Context, credential string) error {
	if err := p.client.Set(ctx, p.key, credential, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.key, err)
	}
	return nil
}

func (p *RedisPersister) Delete(ctx context.Context) error {
	if err := p.client.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", p.key, err)
	}
	return nil
}

// Close releases the underlying client.
func (p *RedisPersister) Close() error {
	return p.client.Close()
}
