package testutils

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type RedisServer struct {
	container *tcredis.RedisContainer
	Addr      string
}

func StartRedisServer(ctx context.Context) (server RedisServer, err error) {
	container, err := tcredis.Run(ctx, "docker.io/redis:7-alpine")
	if err != nil {
		err = fmt.Errorf("failed to start redis server: %w", err)
		return
	}
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		err = fmt.Errorf("failed to determine redis address: %w", err)
		return
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		err = fmt.Errorf("failed to parse redis address %q: %w", uri, err)
		return
	}
	server = RedisServer{container: container, Addr: opts.Addr}
	return
}

func (redisServer RedisServer) Terminate(ctx context.Context) error {
	return redisServer.container.Terminate(ctx)
}
