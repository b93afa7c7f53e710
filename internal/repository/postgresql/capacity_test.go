package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/dairyline/milk-distributor/internal/db/mocks"
	"github.com/dairyline/milk-distributor/internal/repository"
)

var (
	testDay = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	testNow = time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
)

func testCapacity() *repository.Capacity {
	return &repository.Capacity{
		Date:         testDay,
		MaxCapacity:  decimal.RequireFromString("1000"),
		QuantityLeft: decimal.RequireFromString("997.5"),
		UnitPrice:    decimal.RequireFromString("70"),
		CreatedAt:    testNow,
		UpdatedAt:    testNow,
	}
}

func TestCapacityRepo_GetByDate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewCapacityRepo(mockDB)

		mockDB.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), testDay).DoAndReturn(
			func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
				*dest.(*repository.Capacity) = *testCapacity()
				return nil
			})

		got, err := repo.GetByDate(ctx, testDay)
		require.NoError(t, err)
		assert.Equal(t, testCapacity(), got)
	})

	t.Run("Not Found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewCapacityRepo(mockDB)

		mockDB.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), testDay).Return(pgx.ErrNoRows)

		got, err := repo.GetByDate(ctx, testDay)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestCapacityRepo_GetByDateTx(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mockDB := mock_database.NewMockDB(ctrl)
	mockTx := mock_database.NewMockTx(ctrl)
	repo := NewCapacityRepo(mockDB)

	mockTx.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), testDay).DoAndReturn(
		func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
			assert.Contains(t, query, "FOR UPDATE")
			*dest.(*repository.Capacity) = *testCapacity()
			return nil
		})

	got, err := repo.GetByDateTx(ctx, mockTx, testDay)
	require.NoError(t, err)
	assert.True(t, got.QuantityLeft.Equal(decimal.RequireFromString("997.5")))
}

func TestCapacityRepo_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewCapacityRepo(mockDB)
		c := testCapacity()

		mockDB.EXPECT().Exec(ctx, gomock.Any(),
			c.Date, c.MaxCapacity, c.QuantityLeft, c.UnitPrice, c.CreatedAt, c.UpdatedAt,
		).Return(pgconn.CommandTag("INSERT 0 1"), nil)

		assert.NoError(t, repo.Create(ctx, c))
	})

	t.Run("Duplicate", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewCapacityRepo(mockDB)

		mockDB.EXPECT().Exec(ctx, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &pgconn.PgError{Code: pgerrcode.UniqueViolation})

		assert.ErrorIs(t, repo.Create(ctx, testCapacity()), repository.ErrDuplicate)
	})
}

func TestCapacityRepo_UpdateTx(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		tag     pgconn.CommandTag
		execErr error
		wantErr error
	}{
		{name: "Success", tag: pgconn.CommandTag("UPDATE 1")},
		{name: "Missing Row", tag: pgconn.CommandTag("UPDATE 0"), wantErr: repository.ErrObjectNotFound},
		{name: "Tx Error", execErr: errors.New("tx aborted"), wantErr: errors.New("tx aborted")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockTx := mock_database.NewMockTx(ctrl)
			repo := NewCapacityRepo(mock_database.NewMockDB(ctrl))
			c := testCapacity()

			mockTx.EXPECT().Exec(ctx, gomock.Any(), c.QuantityLeft, c.UnitPrice, c.UpdatedAt, c.Date).
				Return(tc.tag, tc.execErr)

			err := repo.UpdateTx(ctx, mockTx, c)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.wantErr.Error())
		})
	}
}

func TestCapacityRepo_AdjustQuantityTx(t *testing.T) {
	ctx := context.Background()
	delta := decimal.RequireFromString("-2.5")

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewCapacityRepo(mock_database.NewMockDB(ctrl))

		mockTx.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), testDay, delta, testNow).DoAndReturn(
			func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
				assert.Contains(t, query, "quantity_left + $2 >= 0")
				*dest.(*repository.Capacity) = *testCapacity()
				return nil
			})

		got, err := repo.AdjustQuantityTx(ctx, mockTx, testDay, delta, testNow)
		require.NoError(t, err)
		assert.Equal(t, testDay, got.Date)
	})

	t.Run("Insufficient Or Missing", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewCapacityRepo(mock_database.NewMockDB(ctrl))

		mockTx.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), testDay, delta, testNow).Return(pgx.ErrNoRows)

		_, err := repo.AdjustQuantityTx(ctx, mockTx, testDay, delta, testNow)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestMapError(t *testing.T) {
	other := errors.New("boom")

	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), repository.ErrObjectNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: pgerrcode.UniqueViolation}), repository.ErrDuplicate)
	assert.Equal(t, other, mapError(other))

	fk := &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}
	assert.Equal(t, fk, mapError(fk))
}
