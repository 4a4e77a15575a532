// Command migrate creates the Spanner instance and database used by
// fieldwatch and applies the DDL files under migrations/. Statements that
// create an object the database already has are skipped, so reruns are safe.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	database "cloud.google.com/go/spanner/admin/database/apiv1"
	"cloud.google.com/go/spanner/admin/database/apiv1/databasepb"
	instance "cloud.google.com/go/spanner/admin/instance/apiv1"
	"cloud.google.com/go/spanner/admin/instance/apiv1/instancepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	projectID  = flag.String("project", getEnvOrDefault("SPANNER_PROJECT_ID", "test-project"), "GCP project ID")
	instanceID = flag.String("instance", getEnvOrDefault("SPANNER_INSTANCE_ID", "dev-instance"), "Spanner instance ID")
	databaseID = flag.String("database", getEnvOrDefault("SPANNER_DATABASE_ID", "fieldwatch-db"), "Spanner database ID")
	migrateDir = flag.String("migrations", "migrations", "Directory containing migration SQL files")
	dryRun     = flag.Bool("dry-run", false, "Print the statements that would be applied")
)

func main() {
	flag.Parse()

	ctx := context.Background()

	if emulatorHost := os.Getenv("SPANNER_EMULATOR_HOST"); emulatorHost != "" {
		log.Printf("Using Spanner emulator at %s", emulatorHost)
	}

	if err := run(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully!")
}

type migrator struct {
	instanceName string
	databaseName string
	admin        *database.DatabaseAdminClient
}

func run(ctx context.Context) error {
	m := &migrator{
		instanceName: fmt.Sprintf("projects/%s/instances/%s", *projectID, *instanceID),
		databaseName: fmt.Sprintf("projects/%s/instances/%s/databases/%s", *projectID, *instanceID, *databaseID),
	}

	if !*dryRun {
		if err := m.ensureInstance(ctx); err != nil {
			return fmt.Errorf("failed to ensure instance: %w", err)
		}
	}

	admin, err := database.NewDatabaseAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()
	m.admin = admin

	if !*dryRun {
		if err := m.ensureDatabase(ctx); err != nil {
			return fmt.Errorf("failed to ensure database: %w", err)
		}
	}

	return m.applyMigrations(ctx, *migrateDir)
}

func (m *migrator) ensureInstance(ctx context.Context) error {
	log.Printf("Ensuring instance %s exists...", m.instanceName)

	instanceAdmin, err := instance.NewInstanceAdminClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create instance admin client: %w", err)
	}
	defer instanceAdmin.Close()

	_, err = instanceAdmin.GetInstance(ctx, &instancepb.GetInstanceRequest{Name: m.instanceName})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		log.Printf("Warning: unexpected error checking instance: %v", err)
		return nil
	}

	log.Println("Creating instance...")
	op, err := instanceAdmin.CreateInstance(ctx, &instancepb.CreateInstanceRequest{
		Parent:     fmt.Sprintf("projects/%s", *projectID),
		InstanceId: *instanceID,
		Instance: &instancepb.Instance{
			Config:      fmt.Sprintf("projects/%s/instanceConfigs/emulator-config", *projectID),
			DisplayName: "fieldwatch",
			NodeCount:   1,
		},
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create instance: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil && status.Code(err) != codes.AlreadyExists {
		log.Printf("Warning during instance creation: %v", err)
	}
	return nil
}

func (m *migrator) ensureDatabase(ctx context.Context) error {
	log.Printf("Ensuring database %s exists...", m.databaseName)

	_, err := m.admin.GetDatabase(ctx, &databasepb.GetDatabaseRequest{Name: m.databaseName})
	if err == nil {
		return nil
	}
	if status.Code(err) != codes.NotFound {
		if os.Getenv("SPANNER_EMULATOR_HOST") != "" {
			log.Printf("Proceeding with database (emulator mode): %v", err)
			return nil
		}
		return fmt.Errorf("failed to check database: %w", err)
	}

	log.Println("Creating database...")
	op, err := m.admin.CreateDatabase(ctx, &databasepb.CreateDatabaseRequest{
		Parent:          m.instanceName,
		CreateStatement: fmt.Sprintf("CREATE DATABASE `%s`", *databaseID),
	})
	if status.Code(err) == codes.AlreadyExists {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if _, err := op.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for database creation: %w", err)
	}
	return nil
}

func (m *migrator) applyMigrations(ctx context.Context, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}
	if len(files) == 0 {
		log.Println("No migration files found")
		return nil
	}

	existing := map[string]bool{}
	if !*dryRun {
		if existing, err = m.existingObjects(ctx); err != nil {
			return err
		}
	}

	for _, file := range files {
		name := filepath.Base(file)

		content, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		statements := pendingStatements(splitDDLStatements(string(content)), existing)
		if len(statements) == 0 {
			log.Printf("%s already applied", name)
			continue
		}

		if *dryRun {
			for _, stmt := range statements {
				fmt.Printf("-- %s\n%s;\n\n", name, stmt)
			}
			continue
		}

		log.Printf("Applying %s (%d statements)...", name, len(statements))
		op, err := m.admin.UpdateDatabaseDdl(ctx, &databasepb.UpdateDatabaseDdlRequest{
			Database:   m.databaseName,
			Statements: statements,
		})
		if err != nil {
			return fmt.Errorf("failed to start DDL update for %s: %w", name, err)
		}
		if err := op.Wait(ctx); err != nil {
			return fmt.Errorf("failed to apply DDL for %s: %w", name, err)
		}
	}
	return nil
}

// existingObjects returns the lower-cased names of tables and indexes the
// database already defines.
func (m *migrator) existingObjects(ctx context.Context) (map[string]bool, error) {
	resp, err := m.admin.GetDatabaseDdl(ctx, &databasepb.GetDatabaseDdlRequest{Database: m.databaseName})
	if err != nil {
		return nil, fmt.Errorf("failed to read database schema: %w", err)
	}
	objects := map[string]bool{}
	for _, stmt := range resp.GetStatements() {
		if name, ok := createdObject(stmt); ok {
			objects[name] = true
		}
	}
	return objects, nil
}

var createPattern = regexp.MustCompile(`(?is)^\s*CREATE\s+(?:UNIQUE\s+|NULL_FILTERED\s+)*(?:TABLE|INDEX)\s+` + "`?" + `([A-Za-z_][A-Za-z0-9_]*)`)

func createdObject(stmt string) (string, bool) {
	match := createPattern.FindStringSubmatch(stmt)
	if match == nil {
		return "", false
	}
	return strings.ToLower(match[1]), true
}

func pendingStatements(statements []string, existing map[string]bool) []string {
	var pending []string
	for _, stmt := range statements {
		if name, ok := createdObject(stmt); ok && existing[name] {
			continue
		}
		pending = append(pending, stmt)
	}
	return pending
}

func splitDDLStatements(content string) []string {
	var cleaned []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			result = append(result, stmt)
		}
	}
	return result
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
