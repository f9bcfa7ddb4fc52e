// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"gorm.io/gorm"
)

const (
	paymentStatusRefunded = "REFUNDED"
	topMoviesLimit        = 10
	defaultSalesDays      = 30
	maxSalesDays          = 365
)

// Service handles analytics business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
		now:    time.Now,
	}
}

// DashboardStats represents overall dashboard statistics
type DashboardStats struct {
	Users     UserStats    `json:"users"`
	Orders    []StatusData `json:"orders_by_status"`
	Payments  []StatusData `json:"payments_by_status"`
	Revenue   RevenueStats `json:"revenue"`
	TopMovies []MovieSales `json:"top_movies"`
	Catalog   CatalogStats `json:"catalog"`
	Generated time.Time    `json:"generated_at"`
}

// UserStats counts accounts
type UserStats struct {
	Total        int64            `json:"total"`
	Active       int64            `json:"active"`
	NewThisMonth int64            `json:"new_this_month"`
	ByRole       map[string]int64 `json:"by_role"`
}

// RevenueStats sums settled payments. Net excludes refunded payments.
type RevenueStats struct {
	Gross     decimal.Decimal `json:"gross"`
	Refunded  decimal.Decimal `json:"refunded"`
	Net       decimal.Decimal `json:"net"`
	Today     decimal.Decimal `json:"today"`
	ThisWeek  decimal.Decimal `json:"this_week"`
	ThisMonth decimal.Decimal `json:"this_month"`
}

// StatusData groups rows by status
type StatusData struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Value  decimal.Decimal `json:"value"`
}

// MovieSales is how often a movie was bought
type MovieSales struct {
	MovieID   uint            `json:"movie_id"`
	Name      string          `json:"name"`
	Purchases int64           `json:"purchases"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// CatalogStats counts catalog and social rows
type CatalogStats struct {
	Movies    int64 `json:"movies"`
	Comments  int64 `json:"comments"`
	Ratings   int64 `json:"ratings"`
	Favorites int64 `json:"favorites"`
}

// SalesAnalytics is the daily revenue of the last days
type SalesAnalytics struct {
	Days         int              `json:"days"`
	DailyRevenue []TimeSeriesData `json:"daily_revenue"`
	TotalSales   int64            `json:"total_sales"`
	TotalRevenue decimal.Decimal  `json:"total_revenue"`
	AvgSale      decimal.Decimal  `json:"avg_sale"`
}

// TimeSeriesData is one day of sales
type TimeSeriesData struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
	Count int64           `json:"count"`
}

func requireAnalytics(actor auth.Actor) error {
	if !actor.Can(auth.ActionViewAnalytics) {
		return apperrors.Forbidden("Only administrators can view analytics.")
	}
	return nil
}

// GetDashboardStats retrieves overall dashboard statistics
func (s *Service) GetDashboardStats(ctx context.Context, actor auth.Actor) (*DashboardStats, error) {
	if err := requireAnalytics(actor); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	now := s.now()

	// Define time periods
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thisWeek := today.AddDate(0, 0, -int(today.Weekday()))
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := &DashboardStats{Generated: now.UTC()}

	// Users
	var roles []struct {
		Role   string
		Count  int64
		Active int64
	}
	if err := db.Raw(`SELECT role, COUNT(*) AS count, COUNT(*) FILTER (WHERE is_active) AS active
		FROM users GROUP BY role`).Scan(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	stats.Users.ByRole = make(map[string]int64, len(roles))
	for _, r := range roles {
		stats.Users.ByRole[r.Role] = r.Count
		stats.Users.Total += r.Count
		stats.Users.Active += r.Active
	}
	if err := db.Raw("SELECT COUNT(*) FROM users WHERE created_at >= ?", thisMonth).
		Scan(&stats.Users.NewThisMonth).Error; err != nil {
		return nil, fmt.Errorf("failed to count new users: %w", err)
	}

	// Orders and payments by status
	if err := db.Raw(`SELECT status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS value
		FROM orders GROUP BY status ORDER BY status`).Scan(&stats.Orders).Error; err != nil {
		return nil, fmt.Errorf("failed to group orders: %w", err)
	}
	if err := db.Raw(`SELECT status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS value
		FROM payments GROUP BY status ORDER BY status`).Scan(&stats.Payments).Error; err != nil {
		return nil, fmt.Errorf("failed to group payments: %w", err)
	}

	// Revenue
	for _, p := range stats.Payments {
		switch p.Status {
		case movie.PaymentStatusSuccessful:
			stats.Revenue.Net = p.Value
		case paymentStatusRefunded:
			stats.Revenue.Refunded = p.Value
		}
	}
	stats.Revenue.Gross = stats.Revenue.Net.Add(stats.Revenue.Refunded)

	var periods struct {
		Today     decimal.Decimal
		ThisWeek  decimal.Decimal
		ThisMonth decimal.Decimal
	}
	if err := db.Raw(`SELECT
			COALESCE(SUM(amount) FILTER (WHERE created_at >= ?), 0) AS today,
			COALESCE(SUM(amount) FILTER (WHERE created_at >= ?), 0) AS this_week,
			COALESCE(SUM(amount) FILTER (WHERE created_at >= ?), 0) AS this_month
		FROM payments WHERE status = ?`, today, thisWeek, thisMonth, movie.PaymentStatusSuccessful).
		Scan(&periods).Error; err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	stats.Revenue.Today = periods.Today
	stats.Revenue.ThisWeek = periods.ThisWeek
	stats.Revenue.ThisMonth = periods.ThisMonth

	// Top movies
	if err := db.Raw(`SELECT m.id AS movie_id, m.name, COUNT(*) AS purchases, COALESCE(SUM(pi.price_at_payment), 0) AS revenue
		FROM payment_items pi
		JOIN payments p ON p.id = pi.payment_id
		JOIN order_items oi ON oi.id = pi.order_item_id
		JOIN movies m ON m.id = oi.movie_id
		WHERE p.status = ?
		GROUP BY m.id, m.name
		ORDER BY purchases DESC, revenue DESC
		LIMIT ?`, movie.PaymentStatusSuccessful, topMoviesLimit).Scan(&stats.TopMovies).Error; err != nil {
		return nil, fmt.Errorf("failed to rank movies: %w", err)
	}

	// Catalog
	if err := db.Raw(`SELECT
			(SELECT COUNT(*) FROM movies) AS movies,
			(SELECT COUNT(*) FROM movie_comments) AS comments,
			(SELECT COUNT(*) FROM movie_ratings) AS ratings,
			(SELECT COUNT(*) FROM movie_favorites) AS favorites`).Scan(&stats.Catalog).Error; err != nil {
		return nil, fmt.Errorf("failed to count catalog: %w", err)
	}

	return stats, nil
}

// GetSalesAnalytics retrieves the daily revenue of the last days
func (s *Service) GetSalesAnalytics(ctx context.Context, actor auth.Actor, days int) (*SalesAnalytics, error) {
	if err := requireAnalytics(actor); err != nil {
		return nil, err
	}

	if days <= 0 {
		days = defaultSalesDays
	}
	if days > maxSalesDays {
		return nil, apperrors.BadRequest(fmt.Sprintf("days must be at most %d", maxSalesDays))
	}

	startDate := s.now().AddDate(0, 0, -days)
	analytics := &SalesAnalytics{Days: days, DailyRevenue: []TimeSeriesData{}}

	err := s.db.WithContext(ctx).Raw(`SELECT
			TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS date,
			COALESCE(SUM(amount), 0) AS value,
			COUNT(*) AS count
		FROM payments
		WHERE status = ? AND created_at >= ?
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at)`, movie.PaymentStatusSuccessful, startDate).
		Scan(&analytics.DailyRevenue).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily revenue: %w", err)
	}

	for _, day := range analytics.DailyRevenue {
		analytics.TotalSales += day.Count
		analytics.TotalRevenue = analytics.TotalRevenue.Add(day.Value)
	}
	if analytics.TotalSales > 0 {
		analytics.AvgSale = analytics.TotalRevenue.Div(decimal.NewFromInt(analytics.TotalSales)).Round(2)
	}

	return analytics, nil
}
