package cli

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/spanner"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/repo"
	"github.com/light-bringer/fieldwatch/internal/config"
)

func openSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func idColumn(model *config.ModelConfig, backend string) string {
	if model.IDColumn != "" {
		return model.IDColumn
	}
	if backend == config.BackendMongoDB {
		return "_id"
	}
	return repo.DefaultIDColumn
}

// openFinder connects to the configured store and returns the query facade
// over the model's table or collection. The returned func releases the
// connection.
func openFinder(ctx context.Context, cfg *config.Config, model *config.ModelConfig) (contracts.RecordFinder, func(), error) {
	var opts []repo.FinderOption
	if model.IDColumn != "" {
		opts = append(opts, repo.WithIDColumn(model.IDColumn))
	}

	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := openSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo.NewSQLFinder(db, model.TableName(), opts...), func() { db.Close() }, nil

	case config.BackendSpanner:
		client, err := spanner.NewClient(ctx, cfg.Store.SpannerDatabase)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Spanner client: %w", err)
		}
		return repo.NewSpannerFinder(client, model.TableName(), opts...), client.Close, nil

	case config.BackendMongoDB:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Store.MongoURL))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		coll := client.Database(cfg.Store.MongoDatabase).Collection(model.TableName())
		finder := repo.NewMongoFinder(coll, opts...)
		if model.ObjectIDs {
			finder = finder.WithObjectIDs()
		}
		return finder, func() { _ = client.Disconnect(context.Background()) }, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
