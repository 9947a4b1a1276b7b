package sequence

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/garyjia/bizflow/internal/application/port"
	"github.com/garyjia/bizflow/internal/domain/entity"
)

// DefaultKeyPrefix namespaces the redis counters
const DefaultKeyPrefix = "bizflow:seq:"

// Incrementer is the slice of the redis client used for counters
type Incrementer interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Redis shares counters between replicas with INCR
type Redis struct {
	client Incrementer
	prefix string
}

// NewRedis creates a redis backed sequence generator
func NewRedis(client Incrementer, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Next returns the next serial for kind
func (r *Redis) Next(ctx context.Context, kind entity.Kind) (uint64, error) {
	if err := checkKind(kind); err != nil {
		return 0, err
	}

	value, err := r.client.Incr(ctx, r.prefix+string(kind)).Result()
	if err != nil {
		// INCR refuses to wrap past the int64 range
		if strings.Contains(err.Error(), "overflow") {
			return 0, exhausted(kind)
		}
		return 0, fmt.Errorf("failed to advance sequence %s: %w", kind, err)
	}
	if value <= 0 {
		return 0, exhausted(kind)
	}
	return uint64(value), nil
}

var _ port.SequenceGenerator = (*Redis)(nil)
