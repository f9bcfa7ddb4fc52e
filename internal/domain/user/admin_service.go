// internal/domain/user/admin_service.go
package user

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/pagination"
	"gorm.io/gorm"
)

// AdminService handles user management by administrators
type AdminService struct {
	db     *gorm.DB
	config *config.Config
}

// NewAdminService creates a new admin user service
func NewAdminService(db *gorm.DB, cfg *config.Config) *AdminService {
	return &AdminService{
		db:     db,
		config: cfg,
	}
}

// UserListRequest represents user list query parameters
type UserListRequest struct {
	Search    string `form:"search"`
	Status    string `form:"status"` // active, inactive, all
	Role      string `form:"role"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	DateFrom  string `form:"date_from"`
	DateTo    string `form:"date_to"`
}

// UserListResponse represents a page of users
type UserListResponse struct {
	Users []UserWithStats `json:"users"`
	pagination.Result
}

// UserWithStats represents user with purchase statistics
type UserWithStats struct {
	User
	PaidOrderCount int64           `json:"paid_order_count"`
	TotalSpent     decimal.Decimal `json:"total_spent"`
	LastPaymentAt  *time.Time      `json:"last_payment_at"`
}

// ChangeGroupRequest is the body of the change-group endpoint
type ChangeGroupRequest struct {
	Group string `json:"group" binding:"required"`
}

var userSortColumns = map[string]string{
	"created_at":    "created_at",
	"email":         "email",
	"last_login_at": "last_login_at",
	"role":          "role",
}

func (s *AdminService) filteredQuery(ctx context.Context, req *UserListRequest) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&User{})

	if req.Search != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(req.Search)+"%")
	}

	switch req.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}

	if role, ok := auth.ParseRole(req.Role); ok {
		query = query.Where("role = ?", role)
	}

	if req.DateFrom != "" {
		if dateFrom, err := time.Parse("2006-01-02", req.DateFrom); err == nil {
			query = query.Where("created_at >= ?", dateFrom)
		}
	}
	if req.DateTo != "" {
		if dateTo, err := time.Parse("2006-01-02", req.DateTo); err == nil {
			query = query.Where("created_at < ?", dateTo.Add(24*time.Hour))
		}
	}
	return query
}

// ListUsers retrieves users with filtering and pagination
func (s *AdminService) ListUsers(ctx context.Context, actor auth.Actor, req *UserListRequest, page pagination.Params) (*UserListResponse, error) {
	if !actor.Can(auth.ActionManageUsers) {
		return nil, apperrors.Forbidden("You don't have permissions.")
	}

	query := s.filteredQuery(ctx, req)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	column, ok := userSortColumns[req.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(req.SortOrder, "asc") {
		direction = "ASC"
	}

	var users []User
	if err := query.Order(column + " " + direction).Offset(page.Offset()).Limit(page.PerPage).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}

	stats, err := s.userStats(ctx, userIDs(users))
	if err != nil {
		return nil, err
	}

	result := make([]UserWithStats, 0, len(users))
	for _, u := range users {
		row := stats[u.ID]
		row.User = u
		result = append(result, row)
	}

	return &UserListResponse{
		Users:  result,
		Result: pagination.Build("/api/v1/admin/users", page, total, nil),
	}, nil
}

// AdminActivate activates an account without the emailed token
func (s *AdminService) AdminActivate(ctx context.Context, actor auth.Actor, userID uint) error {
	if !actor.Can(auth.ActionManageUsers) {
		return apperrors.Forbidden("You don't have permissions.")
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsActive {
		return apperrors.BadRequest("User account is already active.")
	}

	tx := s.db.WithContext(ctx).Begin()
	if err := tx.Model(user).Update("is_active", true).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to activate user: %w", err)
	}
	if err := tx.Where("user_id = ?", user.ID).Delete(&ActivationToken{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete activation token: %w", err)
	}
	return tx.Commit().Error
}

// ChangeGroup moves a user into another role
func (s *AdminService) ChangeGroup(ctx context.Context, actor auth.Actor, userID uint, group string) error {
	if !actor.Can(auth.ActionManageUsers) {
		return apperrors.Forbidden("You don't have permissions.")
	}

	user, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return apperrors.BadRequest("Admin cannot change their own role.")
	}

	role, ok := auth.ParseRole(group)
	if !ok {
		return apperrors.NotFound("Group not found.")
	}

	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return fmt.Errorf("failed to change role: %w", err)
	}
	return nil
}

// ExportUsers renders the filtered user list as CSV
func (s *AdminService) ExportUsers(ctx context.Context, actor auth.Actor, req *UserListRequest) ([]byte, string, error) {
	if !actor.Can(auth.ActionManageUsers) {
		return nil, "", apperrors.Forbidden("You don't have permissions.")
	}

	var users []User
	if err := s.filteredQuery(ctx, req).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, "", fmt.Errorf("failed to retrieve users for export: %w", err)
	}

	stats, err := s.userStats(ctx, userIDs(users))
	if err != nil {
		return nil, "", err
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)
	_ = writer.Write([]string{"ID", "Email", "Role", "Is Active", "Created At", "Last Login", "Paid Orders", "Total Spent"})

	for _, u := range users {
		lastLogin := "Never"
		if u.LastLoginAt != nil {
			lastLogin = u.LastLoginAt.Format("2006-01-02 15:04:05")
		}
		st := stats[u.ID]
		if err := writer.Write([]string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Email,
			string(u.Role),
			strconv.FormatBool(u.IsActive),
			u.CreatedAt.Format("2006-01-02 15:04:05"),
			lastLogin,
			strconv.FormatInt(st.PaidOrderCount, 10),
			st.TotalSpent.StringFixed(2),
		}); err != nil {
			return nil, "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to write CSV: %w", err)
	}

	filename := fmt.Sprintf("users_export_%s.csv", time.Now().Format("2006-01-02_15-04-05"))
	return []byte(buf.String()), filename, nil
}

func (s *AdminService) find(ctx context.Context, userID uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found.")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// userStats sums successful payments per user in one query
func (s *AdminService) userStats(ctx context.Context, ids []uint) (map[uint]UserWithStats, error) {
	out := make(map[uint]UserWithStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	type row struct {
		UserID         uint
		PaidOrderCount int64
		TotalSpent     decimal.Decimal
		LastPaymentAt  *time.Time
	}
	var rows []row
	err := s.db.WithContext(ctx).Raw(`
		SELECT user_id,
			COUNT(*) AS paid_order_count,
			COALESCE(SUM(amount), 0) AS total_spent,
			MAX(created_at) AS last_payment_at
		FROM payments
		WHERE status = 'SUCCESSFUL' AND user_id IN ?
		GROUP BY user_id
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}

	for _, r := range rows {
		out[r.UserID] = UserWithStats{
			PaidOrderCount: r.PaidOrderCount,
			TotalSpent:     r.TotalSpent,
			LastPaymentAt:  r.LastPaymentAt,
		}
	}
	return out, nil
}

func userIDs(users []User) []uint {
	ids := make([]uint, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}
