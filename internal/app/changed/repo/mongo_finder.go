package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/light-bringer/fieldwatch/internal/app/changed/contracts"
	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

// MongoFinder reads prior state from a MongoDB collection.
type MongoFinder struct {
	coll      *mongo.Collection
	cfg       finderConfig
	objectIDs bool
}

// NewMongoFinder creates a finder over coll. Ids are matched against the
// _id field unless WithIDColumn names another one.
func NewMongoFinder(coll *mongo.Collection, opts ...FinderOption) *MongoFinder {
	return &MongoFinder{
		coll: coll,
		cfg:  newFinderConfig("_id", opts),
	}
}

var _ contracts.RecordFinder = (*MongoFinder)(nil)

// WithObjectIDs makes the finder parse ids as hex ObjectIDs.
func (f *MongoFinder) WithObjectIDs() *MongoFinder {
	clone := *f
	clone.objectIDs = true
	return &clone
}

// FindByID reads one document.
func (f *MongoFinder) FindByID(ctx context.Context, id string, fields []string) (domain.FieldValues, error) {
	key, err := f.idValue(id)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = f.coll.FindOne(ctx, bson.D{{Key: f.cfg.idColumn, Value: key}},
		options.FindOne().SetProjection(projection(fields)),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to find %s document: %w", f.coll.Name(), err)
	}
	return documentValues(doc, fields), nil
}

// Find runs one query for the documents matching where.
func (f *MongoFinder) Find(ctx context.Context, where query.Condition, fields []string) ([]domain.Snapshot, error) {
	cursor, err := f.coll.Find(ctx, query.BSON(where),
		options.Find().SetProjection(projection(selectColumns(f.cfg.idColumn, fields))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", f.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	var snapshots []domain.Snapshot
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode %s document: %w", f.coll.Name(), err)
		}
		snapshots = append(snapshots, domain.Snapshot{
			ID:     idString(normalizeBSON(doc[f.cfg.idColumn])),
			Values: documentValues(doc, fields),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", f.coll.Name(), err)
	}
	return snapshots, nil
}

func (f *MongoFinder) idValue(id string) (interface{}, error) {
	if !f.objectIDs {
		return id, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid object id %q: %w", id, err)
	}
	return oid, nil
}

func projection(fields []string) bson.D {
	proj := make(bson.D, 0, len(fields))
	for _, f := range fields {
		proj = append(proj, bson.E{Key: f, Value: 1})
	}
	return proj
}

// documentValues picks fields out of doc. Missing fields are nil.
func documentValues(doc bson.M, fields []string) domain.FieldValues {
	values := make(domain.FieldValues, len(fields))
	for _, f := range fields {
		values[f] = normalizeBSON(doc[f])
	}
	return values
}

// normalizeBSON converts driver types to plain Go values.
func normalizeBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	case bson.M:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeBSON(val)
		}
		return out
	case bson.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeBSON(val)
		}
		return out
	default:
		return v
	}
}
