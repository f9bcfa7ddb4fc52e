package order

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/logger"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	admin     = auth.Actor{UserID: 1, Role: auth.RoleAdmin}
	moderator = auth.Actor{UserID: 2, Role: auth.RoleModerator}
	member    = auth.Actor{UserID: 3, Role: auth.RoleUser}
	stranger  = auth.Actor{UserID: 4, Role: auth.RoleUser}
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func newTestService(db *gorm.DB) *Service {
	return NewService(db, &config.Config{}, logger.Discard())
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func idRow(id uint) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id"}).AddRow(id)
}

func orderRow(id, userID uint, status OrderStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "status", "total_amount", "created_at", "updated_at"}).
		AddRow(id, userID, status, "19.98", time.Now(), time.Now())
}

func movieRow(id uint, price string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "price"}).AddRow(id, "Heat", price)
}

func TestCreateOrder(t *testing.T) {
	t.Run("pending order with the same movie", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items" JOIN orders`)).WillReturnRows(countRows(1))

		_, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{MovieIDs: []uint{5}})
		assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
		assert.Equal(t, "You have pending orders with these movies", apperrors.Message(err))
	})

	t.Run("empty cart", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(`SELECT .* FROM "cart_items" JOIN carts`).WillReturnRows(sqlmock.NewRows([]string{"movie_id"}))

		_, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{})
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
		assert.Equal(t, "Your cart is empty", apperrors.Message(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("explicit empty list", func(t *testing.T) {
		db, _ := setupMockDB(t)
		svc := newTestService(db)

		_, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{MovieIDs: []uint{}})
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
	})

	t.Run("movie missing rolls back", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items" JOIN orders`)).WillReturnRows(countRows(0))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).WillReturnRows(idRow(9))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		sqlMock.ExpectRollback()

		_, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{MovieIDs: []uint{42}})
		assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
		assert.Equal(t, "Movie with ID 42 not found.", apperrors.Message(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("duplicate movie in request", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items" JOIN orders`)).WillReturnRows(countRows(0))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).WillReturnRows(idRow(9))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow(5, "9.99"))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).WillReturnRows(idRow(21))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow(5, "9.99"))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items"`)).WillReturnRows(countRows(1))
		sqlMock.ExpectRollback()

		_, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{MovieIDs: []uint{5, 5}})
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
		assert.Equal(t, "Duplicate purchase of movie with ID 5", apperrors.Message(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("constraint violation is invalid input", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items" JOIN orders`)).WillReturnRows(countRows(0))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).WillReturnRows(idRow(9))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow(5, "9.99"))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		sqlMock.ExpectRollback()

		_, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{MovieIDs: []uint{5}})
		assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
		assert.Equal(t, "Invalid input data.", apperrors.Message(err))
	})

	t.Run("cart already checked out by a concurrent request", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(`SELECT .* FROM "cart_items" JOIN carts`).
			WillReturnRows(sqlmock.NewRows([]string{"movie_id"}).AddRow(5))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items" JOIN orders`)).WillReturnRows(countRows(0))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).WillReturnRows(idRow(9))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow(5, "9.99"))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items"`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).WillReturnRows(idRow(21))
		sqlMock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_status_history"`)).WillReturnRows(idRow(1))
		// The other checkout already emptied the cart
		sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart_items"`)).WillReturnResult(sqlmock.NewResult(0, 0))
		sqlMock.ExpectRollback()

		order, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{})
		assert.Nil(t, order)
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
		assert.Equal(t, "Your cart is empty", apperrors.Message(err))
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("created with frozen prices", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items" JOIN orders`)).WillReturnRows(countRows(0))
		sqlMock.ExpectBegin()
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "orders"`)).WillReturnRows(idRow(9))
		for i, price := range []string{"0.10", "0.20"} {
			movieID := uint(5 + i)
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "movies"`)).WillReturnRows(movieRow(movieID, price))
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "movies"`)).WillReturnRows(countRows(0))
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "order_items"`)).WillReturnRows(countRows(0))
			sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_items"`)).WillReturnRows(idRow(20 + movieID))
		}
		sqlMock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET`)).WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_status_history"`)).WillReturnRows(idRow(1))
		sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "cart_items"`)).WillReturnResult(sqlmock.NewResult(0, 2))
		sqlMock.ExpectCommit()

		order, err := svc.CreateOrder(context.Background(), 3, &CreateOrderRequest{MovieIDs: []uint{5, 6}})
		require.NoError(t, err)
		assert.Equal(t, uint(9), order.ID)
		assert.Equal(t, OrderStatusPending, order.Status)
		assert.Equal(t, "0.30", order.TotalAmount.StringFixed(2))
		assert.Equal(t, []uint{5, 6}, order.MovieIDs())
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})
}

func TestListOrders(t *testing.T) {
	t.Run("none found", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE user_id = $1`)).WillReturnRows(countRows(0))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := svc.ListOrders(context.Background(), member, &OrderListRequest{}, pagination.Params{Page: 1, PerPage: 10})
		assert.Equal(t, http.StatusNotFound, apperrors.Status(err))
		assert.Equal(t, "No orders found.", apperrors.Message(err))
	})

	t.Run("user filter ignored for members", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE user_id = $1`)).WillReturnRows(countRows(1))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1`)).
			WillReturnRows(orderRow(9, member.UserID, OrderStatusPending))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "movie_id", "price_at_order"}).AddRow(1, 9, 5, "19.98"))

		resp, err := svc.ListOrders(context.Background(), member, &OrderListRequest{Users: []uint{4}}, pagination.Params{Page: 1, PerPage: 10})
		require.NoError(t, err)
		require.Len(t, resp.Orders, 1)
		assert.Len(t, resp.Orders[0].Items, 1)
		assert.Equal(t, int64(1), resp.TotalItems)
	})

	t.Run("staff filters by users and status", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)

		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "orders" WHERE user_id IN ($1,$2) AND status = $3`)).
			WillReturnRows(countRows(1))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id IN ($1,$2) AND status = $3`)).
			WillReturnRows(orderRow(9, 3, OrderStatusPaid))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))

		resp, err := svc.ListOrders(context.Background(), moderator,
			&OrderListRequest{Users: []uint{3, 4}, Status: "PAID"}, pagination.Params{Page: 1, PerPage: 10})
		require.NoError(t, err)
		assert.Len(t, resp.Orders, 1)
	})

	t.Run("bad filters", func(t *testing.T) {
		db, _ := setupMockDB(t)
		svc := newTestService(db)

		_, err := svc.ListOrders(context.Background(), admin, &OrderListRequest{Status: "SHIPPED"}, pagination.Params{Page: 1, PerPage: 10})
		assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))

		_, err = svc.ListOrders(context.Background(), admin, &OrderListRequest{Date: "19-10-2026"}, pagination.Params{Page: 1, PerPage: 10})
		assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
	})
}

func TestGetOrder(t *testing.T) {
	tests := []struct {
		name   string
		actor  auth.Actor
		rows   *sqlmock.Rows
		status int
	}{
		{"missing", member, sqlmock.NewRows([]string{"id"}), http.StatusNotFound},
		{"someone else's", stranger, orderRow(9, 3, OrderStatusPending), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, sqlMock := setupMockDB(t)
			svc := newTestService(db)
			sqlMock.MatchExpectationsInOrder(false)
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(tt.rows)
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_status_history"`)).WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))

			_, err := svc.GetOrder(context.Background(), tt.actor, 9)
			assert.Equal(t, tt.status, apperrors.Status(err))
		})
	}
}

func TestCancelOrder(t *testing.T) {
	t.Run("paid order redirects to refund", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(orderRow(9, 3, OrderStatusPaid))

		redirect, err := svc.CancelOrder(context.Background(), member, 9)
		require.NoError(t, err)
		assert.Equal(t, "/api/v1/payments/refund/9", redirect)
	})

	t.Run("canceled order is an invalid transition", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(orderRow(9, 3, OrderStatusCanceled))

		_, err := svc.CancelOrder(context.Background(), member, 9)
		assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
		assert.Equal(t, "Cannot change order status from CANCELED to CANCELED.", apperrors.Message(err))
	})

	t.Run("moderator may not cancel others' orders", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(orderRow(9, 3, OrderStatusPending))

		_, err := svc.CancelOrder(context.Background(), moderator, 9)
		assert.Equal(t, http.StatusForbidden, apperrors.Status(err))
	})

	t.Run("pending order canceled by admin", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(orderRow(9, 3, OrderStatusPending))
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "status"=$1`)).WillReturnResult(sqlmock.NewResult(0, 1))
		sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "order_status_history"`)).WillReturnRows(idRow(2))
		sqlMock.ExpectCommit()

		redirect, err := svc.CancelOrder(context.Background(), admin, 9)
		require.NoError(t, err)
		assert.Empty(t, redirect)
		assert.NoError(t, sqlMock.ExpectationsWereMet())
	})

	t.Run("concurrent settlement wins", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		svc := newTestService(db)
		sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(orderRow(9, 3, OrderStatusPending))
		sqlMock.ExpectBegin()
		sqlMock.ExpectExec(regexp.QuoteMeta(`UPDATE "orders" SET "status"=$1`)).WillReturnResult(sqlmock.NewResult(0, 0))
		sqlMock.ExpectRollback()

		_, err := svc.CancelOrder(context.Background(), member, 9)
		assert.Equal(t, http.StatusConflict, apperrors.Status(err))
	})
}

func TestCancelLatestPending_None(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := newTestService(db)
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders" WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	order, err := svc.CancelLatestPending(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestDeleteOrder(t *testing.T) {
	tests := []struct {
		name    string
		actor   auth.Actor
		deletes bool
		status  int
	}{
		{"owner", member, true, 0},
		{"admin", admin, true, 0},
		{"moderator", moderator, false, http.StatusForbidden},
		{"stranger", stranger, false, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, sqlMock := setupMockDB(t)
			svc := newTestService(db)
			sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(orderRow(9, 3, OrderStatusPaid))
			if tt.deletes {
				sqlMock.ExpectBegin()
				sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "orders"`)).WillReturnResult(sqlmock.NewResult(0, 1))
				sqlMock.ExpectCommit()
			}

			err := svc.DeleteOrder(context.Background(), tt.actor, 9)
			if tt.status == 0 {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.status, apperrors.Status(err))
			}
			assert.NoError(t, sqlMock.ExpectationsWereMet())
		})
	}
}

func TestInvoiceOrder_RequiresPaid(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := newTestService(db)
	sqlMock.MatchExpectationsInOrder(false)
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "orders"`)).WillReturnRows(orderRow(9, 3, OrderStatusPending))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_items"`)).WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "order_status_history"`)).WillReturnRows(sqlmock.NewRows([]string{"id", "order_id"}))

	_, err := svc.InvoiceOrder(context.Background(), member, 9)
	assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCanceled, true},
		{OrderStatusPaid, OrderStatusCanceled, true},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusCanceled, OrderStatusPaid, false},
		{OrderStatusCanceled, OrderStatusPending, false},
	}

	for _, tt := range tests {
		o := &Order{Status: tt.from}
		assert.Equal(t, tt.allowed, o.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/api/v1/payments/pay?order_id=12", PaymentPath(12))
	assert.Equal(t, "/api/v1/payments/refund/12", RefundPath(12))
}
