package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type DBServer struct {
	container        *postgres.PostgresContainer
	ConnectionString string
}

var dbConfig = struct {
	Username string
	Password string
	DBName   string
}{
	Username: "postgres",
	Password: "postgres",
	DBName:   "test",
}

func newConnectionString(host string, port nat.Port) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", dbConfig.Username, dbConfig.Password, host, port.Int(), dbConfig.DBName)
}

var defaultPGPort = nat.Port("5432/tcp")

const defaultTimeout = 15 * time.Minute

func StartDBServer(ctx context.Context) (server DBServer, err error) {
	timeout := defaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	container, err := postgres.Run(ctx, "docker.io/postgres:16-alpine",
		postgres.WithDatabase(dbConfig.DBName),
		postgres.WithUsername(dbConfig.Username),
		postgres.WithPassword(dbConfig.Password),
		testcontainers.WithWaitStrategyAndDeadline(timeout, wait.ForSQL(defaultPGPort, "pgx", newConnectionString)),
	)
	if err != nil {
		err = fmt.Errorf("failed to start database server: %w", err)
		return
	}

	host, err := container.Host(ctx)
	if err != nil {
		err = fmt.Errorf("failed to determine host name: %w", err)
		return
	}
	port, err := container.MappedPort(ctx, defaultPGPort)
	if err != nil {
		err = fmt.Errorf("failed to determine port: %w", err)
		return
	}

	server = DBServer{container: container, ConnectionString: newConnectionString(host, port)}
	return
}

func (dbServer DBServer) Terminate(ctx context.Context) error {
	return dbServer.container.Terminate(ctx)
}
