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

func testOrder() *repository.Order {
	return &repository.Order{
		ID:         "order-123",
		OrderDate:  testDay,
		Quantity:   decimal.RequireFromString("2.5"),
		TotalPrice: decimal.RequireFromString("175"),
		Status:     "PLACED",
		Address:    "Bangalore",
		CreatedAt:  testNow,
		UpdatedAt:  testNow,
	}
}

func TestOrderRepo_CreateTx(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewOrderRepo(mock_database.NewMockDB(ctrl))
		o := testOrder()

		mockTx.EXPECT().Exec(ctx, gomock.Any(),
			o.ID, o.OrderDate, o.DeliveryDate, o.Quantity, o.TotalPrice, o.Status, o.Address, o.CreatedAt, o.UpdatedAt,
		).Return(pgconn.CommandTag("INSERT 0 1"), nil)

		assert.NoError(t, repo.CreateTx(ctx, mockTx, o))
	})

	t.Run("Duplicate ID", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewOrderRepo(mock_database.NewMockDB(ctrl))

		mockTx.EXPECT().Exec(ctx, gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &pgconn.PgError{Code: pgerrcode.UniqueViolation})

		assert.ErrorIs(t, repo.CreateTx(ctx, mockTx, testOrder()), repository.ErrDuplicate)
	})
}

func TestOrderRepo_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewOrderRepo(mockDB)

		mockDB.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), "order-123").DoAndReturn(
			func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
				*dest.(*repository.Order) = *testOrder()
				return nil
			})

		got, err := repo.GetByID(ctx, "order-123")
		require.NoError(t, err)
		assert.Equal(t, testOrder(), got)
	})

	t.Run("Not Found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewOrderRepo(mockDB)

		mockDB.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), "missing").Return(pgx.ErrNoRows)

		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}

func TestOrderRepo_GetByIDTx(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mockTx := mock_database.NewMockTx(ctrl)
	repo := NewOrderRepo(mock_database.NewMockDB(ctrl))

	mockTx.EXPECT().Get(ctx, gomock.Any(), gomock.Any(), "order-123").DoAndReturn(
		func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
			assert.Contains(t, query, "FOR UPDATE")
			*dest.(*repository.Order) = *testOrder()
			return nil
		})

	got, err := repo.GetByIDTx(ctx, mockTx, "order-123")
	require.NoError(t, err)
	assert.Equal(t, "order-123", got.ID)
}

func TestOrderRepo_UpdateTx(t *testing.T) {
	ctx := context.Background()
	delivered := testDay

	tests := []struct {
		name    string
		tag     pgconn.CommandTag
		execErr error
		wantErr error
	}{
		{name: "Success", tag: pgconn.CommandTag("UPDATE 1")},
		{name: "Missing Row", tag: pgconn.CommandTag("UPDATE 0"), wantErr: repository.ErrObjectNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockTx := mock_database.NewMockTx(ctrl)
			repo := NewOrderRepo(mock_database.NewMockDB(ctrl))
			o := testOrder()
			o.Status = "DELIVERED"
			o.DeliveryDate = &delivered

			mockTx.EXPECT().Exec(ctx, gomock.Any(), o.DeliveryDate, o.Status, o.Address, o.UpdatedAt, o.ID).
				Return(tc.tag, tc.execErr)

			err := repo.UpdateTx(ctx, mockTx, o)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestOrderRepo_DeleteTx(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		tag     pgconn.CommandTag
		execErr error
		wantErr bool
		isNF    bool
	}{
		{name: "Success", tag: pgconn.CommandTag("DELETE 1")},
		{name: "Already Gone", tag: pgconn.CommandTag("DELETE 0"), wantErr: true, isNF: true},
		{name: "Tx Error", execErr: errors.New("conn busy"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockTx := mock_database.NewMockTx(ctrl)
			repo := NewOrderRepo(mock_database.NewMockDB(ctrl))

			mockTx.EXPECT().Exec(ctx, gomock.Any(), "order-123").Return(tc.tag, tc.execErr)

			err := repo.DeleteTx(ctx, mockTx, "order-123")
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.isNF, errors.Is(err, repository.ErrObjectNotFound))
		})
	}
}

func TestOrderRepo_ListByDate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewOrderRepo(mockDB)

		mockDB.EXPECT().Select(ctx, gomock.Any(), gomock.Any(), testDay).DoAndReturn(
			func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
				*dest.(*[]*repository.Order) = []*repository.Order{testOrder()}
				return nil
			})

		got, err := repo.ListByDate(ctx, testDay)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "order-123", got[0].ID)
	})

	t.Run("DB Error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewOrderRepo(mockDB)

		mockDB.EXPECT().Select(ctx, gomock.Any(), gomock.Any(), testDay).Return(errors.New("timeout"))

		_, err := repo.ListByDate(ctx, testDay)
		assert.ErrorContains(t, err, "failed to list orders")
	})
}

func TestHistoryRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateTx", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := NewHistoryRepo(mock_database.NewMockDB(ctrl))
		entry := &repository.HistoryEntry{OrderID: "order-123", Status: "PACKED", ChangedAt: testNow}

		mockTx.EXPECT().Exec(ctx, gomock.Any(), entry.OrderID, entry.Status, entry.ChangedAt).
			Return(pgconn.CommandTag("INSERT 0 1"), nil)

		assert.NoError(t, repo.CreateTx(ctx, mockTx, entry))
	})

	t.Run("GetByOrderID", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := NewHistoryRepo(mockDB)
		want := []*repository.HistoryEntry{
			{ID: 1, OrderID: "order-123", Status: "PLACED", ChangedAt: testNow.Add(-time.Hour)},
			{ID: 2, OrderID: "order-123", Status: "PACKED", ChangedAt: testNow},
		}

		mockDB.EXPECT().Select(ctx, gomock.Any(), gomock.Any(), "order-123").DoAndReturn(
			func(_ context.Context, dest interface{}, _ string, _ ...interface{}) error {
				*dest.(*[]*repository.HistoryEntry) = want
				return nil
			})

		got, err := repo.GetByOrderID(ctx, "order-123")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
