package embedcache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore persists embeddings in a Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "embed"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

// NewValkeyClient dials addr, which may be host:port or a redis:// URL, and pings it.
func NewValkeyClient(ctx context.Context, addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse valkey url: %w", err)
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping valkey: %w", err)
	}
	return client, nil
}

func (s *ValkeyStore) Get(ctx context.Context, key string) ([]float32, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.entryKey(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var embedding []float32
	if err := json.Unmarshal([]byte(payload), &embedding); err != nil {
		return nil, false, err
	}
	return embedding, true, nil
}

func (s *ValkeyStore) Set(ctx context.Context, key string, embedding []float32, ttl time.Duration) error {
	payload, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.entryKey(key)).Value(string(payload))
	var cmd valkey.Completed
	if ttl > 0 {
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) entryKey(key string) string {
	return fmt.Sprintf("%s:q:%s", s.prefix, key)
}

var _ Store = (*ValkeyStore)(nil)
