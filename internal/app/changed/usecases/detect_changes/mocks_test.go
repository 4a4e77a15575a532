package detect_changes

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/light-bringer/fieldwatch/internal/app/changed/domain"
	"github.com/light-bringer/fieldwatch/internal/pkg/query"
)

type MockFinder struct {
	mock.Mock
}

func (m *MockFinder) FindByID(ctx context.Context, id string, fields []string) (domain.FieldValues, error) {
	args := m.Called(ctx, id, fields)
	if v := args.Get(0); v != nil {
		return v.(domain.FieldValues), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockFinder) Find(ctx context.Context, where query.Condition, fields []string) ([]domain.Snapshot, error) {
	args := m.Called(ctx, where, fields)
	if v := args.Get(0); v != nil {
		return v.([]domain.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}
