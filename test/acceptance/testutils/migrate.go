package testutils

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega/gexec"
)

// Migrator drives the fleet-live-migrate binary against one database.
type Migrator struct {
	BinaryPath string
	DBURL      string
}

func (m Migrator) run(ctx context.Context, args ...string) (stdout []byte, err error) {
	args = append([]string{"--db.url", m.DBURL}, args...)
	session, err := gexec.Start(exec.Command(m.BinaryPath, args...), GinkgoWriter, GinkgoWriter)
	if err != nil {
		err = fmt.Errorf("failed to start %s: %w", m.BinaryPath, err)
		return
	}
	select {
	case <-session.Exited:
	case <-ctx.Done():
		session.Kill()
		err = fmt.Errorf("%s: %w", args[2], context.Cause(ctx))
		return
	}
	if code := session.ExitCode(); code != 0 {
		err = fmt.Errorf("%s exited with code %d", args[2], code)
		return
	}
	stdout = session.Out.Contents()
	return
}

// MigrateTo moves the schema to target, a version number or "latest".
func (m Migrator) MigrateTo(ctx context.Context, target string) error {
	_, err := m.run(ctx, "migrate", "--to", target)
	return err
}

func (m Migrator) SchemaVersion(ctx context.Context) (version int64, err error) {
	out, err := m.run(ctx, "version")
	if err != nil {
		return
	}
	version, err = strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
	if err != nil {
		err = fmt.Errorf("unexpected version output %q: %w", out, err)
	}
	return
}

// MigrateToLatest migrates to the newest schema and confirms the database
// reports a schema version afterwards.
func (m Migrator) MigrateToLatest(ctx context.Context) error {
	if err := m.MigrateTo(ctx, "latest"); err != nil {
		return err
	}
	version, err := m.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		return fmt.Errorf("schema still unversioned after migrating to latest")
	}
	GinkgoWriter.Printf("migrated %s to schema version %d\n", m.DBURL, version)
	return nil
}
