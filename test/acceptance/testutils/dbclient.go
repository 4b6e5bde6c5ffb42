package testutils

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	sharedutils "github.com/technopolitica/fleet-live/test/testutils"
)

// DBClient manages one migrated template database and the per-process test
// databases copied from it.
type DBClient struct {
	conn *pgx.Conn
}

type TestDB struct {
	Name             string
	ConnectionString string
}

func NewDBClient(ctx context.Context, connString string) (client *DBClient, err error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		err = fmt.Errorf("failed to connect to database: %w", err)
		return
	}
	client = &DBClient{
		conn: conn,
	}
	return
}

const sourceDBName = "_original"

func connectionString(config pgx.ConnConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", config.User, config.Password, config.Host, config.Port, config.Database)
}

func (client DBClient) databaseURL(name string) string {
	config := client.conn.Config().Copy()
	config.Database = name
	return connectionString(*config)
}

func (client DBClient) InitializeSourceDB(ctx context.Context, migrateBinaryPath string) (err error) {
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, sourceDBName))
	if err != nil {
		err = fmt.Errorf("failed to create database: %w", err)
		return
	}
	migrator := Migrator{BinaryPath: migrateBinaryPath, DBURL: client.databaseURL(sourceDBName)}
	err = migrator.MigrateToLatest(ctx)
	if err != nil {
		err = fmt.Errorf("failed to migrate database to latest schema version: %w", err)
	}
	return
}

func (client DBClient) CleanupSourceDB(ctx context.Context) (err error) {
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s"`, sourceDBName))
	if err != nil {
		err = fmt.Errorf("failed to drop source database: %w", err)
	}
	return
}

func (client DBClient) CreateTestDB(ctx context.Context) (testDB TestDB, err error) {
	testDB.Name = sharedutils.GenerateRandomUUID().String()
	testDB.ConnectionString = client.databaseURL(testDB.Name)
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`CREATE DATABASE "%s" WITH TEMPLATE "%s"`, testDB.Name, sourceDBName))
	if err != nil {
		err = fmt.Errorf("failed to copy database from source: %w", err)
	}
	return
}

// CleanupTestDB drops the test database, disconnecting anything still
// attached to it.
func (client DBClient) CleanupTestDB(ctx context.Context, testDBName string) (err error) {
	_, err = client.conn.Exec(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS "%s" WITH (FORCE)`, testDBName))
	if err != nil {
		err = fmt.Errorf("failed to drop database: %w", err)
	}
	return
}

var fixture = []string{
	`TRUNCATE trips, drivers, buses, routes, fleet_managers CASCADE`,
	`INSERT INTO fleet_managers (id, company_name) VALUES ('FM-A', 'Alpha Transit'), ('FM-B', 'Beta Lines')`,
	`INSERT INTO routes (id, route_number, route_name) VALUES ('R-138', '138', 'Pettah - Homagama')`,
	`INSERT INTO buses (id, license_plate, fleet_manager_id, route_id) VALUES
		('BUS-42', 'NB-4242', 'FM-A', 'R-138'),
		('BUS-7', 'NB-0007', 'FM-A', NULL),
		('BUS-99', 'NB-9999', 'FM-B', NULL)`,
	`INSERT INTO drivers (id, full_name, fleet_manager_id, status) VALUES
		('D1', 'Nimal Perera', 'FM-A', 'active'),
		('D2', 'Kamal Silva', 'FM-A', 'active'),
		('D3', 'Sunil Fernando', 'FM-A', 'inactive'),
		('D4', 'Ruwan Jayasuriya', 'FM-B', 'active')`,
}

// ResetTestDB replaces the contents of the test database with the fleet
// fixture. The schema is kept so a running server can stay connected.
func (client DBClient) ResetTestDB(ctx context.Context, testDBName string) (err error) {
	conn, err := pgx.Connect(ctx, client.databaseURL(testDBName))
	if err != nil {
		return fmt.Errorf("failed to connect to test database: %w", err)
	}
	defer conn.Close(ctx)

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)
	for _, stmt := range fixture {
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to load fixture: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (client DBClient) Close(ctx context.Context) error {
	return client.conn.Close(ctx)
}
