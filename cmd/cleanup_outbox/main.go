// Command cleanup_outbox deletes processed change notifications older than
// their retention period.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"cloud.google.com/go/spanner"

	m "github.com/light-bringer/fieldwatch/internal/models/m_change_outbox"
	"github.com/light-bringer/fieldwatch/internal/pkg/committer"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// Config for the outbox cleanup job.
type Config struct {
	SpannerDB              string
	CompletedRetentionDays int
	FailedRetentionDays    int
	DryRun                 bool
}

func main() {
	config := Config{}
	flag.StringVar(&config.SpannerDB, "database", os.Getenv("SPANNER_DATABASE"), "Spanner database (format: projects/PROJECT/instances/INSTANCE/databases/DATABASE)")
	flag.IntVar(&config.CompletedRetentionDays, "completed-retention", 30, "Retention days for completed notifications")
	flag.IntVar(&config.FailedRetentionDays, "failed-retention", 90, "Retention days for failed notifications")
	flag.BoolVar(&config.DryRun, "dry-run", false, "Show what would be deleted without deleting")
	flag.Parse()

	if config.SpannerDB == "" {
		log.Fatal("Error: -database flag or SPANNER_DATABASE is required")
	}

	if err := cleanupOutbox(context.Background(), config); err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}
	log.Println("Cleanup completed successfully")
}

func cleanupOutbox(ctx context.Context, config Config) error {
	client, err := spanner.NewClient(ctx, config.SpannerDB)
	if err != nil {
		return fmt.Errorf("failed to create Spanner client: %w", err)
	}
	defer client.Close()

	now := time.Now().UTC()
	completedCutoff := now.AddDate(0, 0, -config.CompletedRetentionDays)
	failedCutoff := now.AddDate(0, 0, -config.FailedRetentionDays)

	log.Printf("Starting outbox cleanup...")
	log.Printf("  Completed cutoff: %s (retention: %d days)", completedCutoff.Format(time.RFC3339), config.CompletedRetentionDays)
	log.Printf("  Failed cutoff: %s (retention: %d days)", failedCutoff.Format(time.RFC3339), config.FailedRetentionDays)

	if config.DryRun {
		for status, cutoff := range map[string]time.Time{m.StatusCompleted: completedCutoff, m.StatusFailed: failedCutoff} {
			count, err := countExpired(ctx, client, expired(status, cutoff))
			if err != nil {
				return err
			}
			log.Printf("DRY RUN: would delete %d %s notifications", count, status)
		}
		return nil
	}

	stmt := deleteStatement(retentionCondition(completedCutoff, failedCutoff))
	deleted, err := committer.NewCommitter(client).Update(ctx, stmt)
	if err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	log.Printf("Deleted %d notifications", deleted)
	return nil
}

func expired(status string, cutoff time.Time) query.Condition {
	return query.And(query.Eq(m.Status, status), query.Lt(m.ProcessedAt, cutoff))
}

// retentionCondition matches notifications past their retention period.
// Pending notifications are never matched.
func retentionCondition(completedCutoff, failedCutoff time.Time) query.Condition {
	return query.Or(expired(m.StatusCompleted, completedCutoff), expired(m.StatusFailed, failedCutoff))
}

func deleteStatement(where query.Condition) spanner.Statement {
	return query.DeleteFrom(m.TableName).Where(where).Build()
}

func countExpired(ctx context.Context, client *spanner.Client, where query.Condition) (int64, error) {
	stmt := query.From(m.TableName).Where(where).Count().Build()

	iter := client.Single().Query(ctx, stmt)
	defer iter.Stop()

	row, err := iter.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	var count int64
	if err := row.Columns(&count); err != nil {
		return 0, fmt.Errorf("failed to parse count: %w", err)
	}
	return count, nil
}
