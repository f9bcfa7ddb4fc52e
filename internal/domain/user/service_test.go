package user

import (
	"context"
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/your-org/cinema-backend/internal/config"
	"github.com/your-org/cinema-backend/internal/pkg/apperrors"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"github.com/your-org/cinema-backend/internal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendActivationEmail(ctx context.Context, to, link string) error {
	return m.Called(to, link).Error(0)
}

func (m *mockMailer) SendActivationCompleteEmail(ctx context.Context, to, link string) error {
	return m.Called(to, link).Error(0)
}

func (m *mockMailer) SendPasswordResetEmail(ctx context.Context, to, link string) error {
	return m.Called(to, link).Error(0)
}

func (m *mockMailer) SendPasswordResetCompleteEmail(ctx context.Context, to, link string) error {
	return m.Called(to, link).Error(0)
}

func (m *mockMailer) SendPaymentSuccessEmail(ctx context.Context, to, name, amount, link string) error {
	return m.Called(to, name, amount, link).Error(0)
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "cinema", BaseURL: "http://localhost:8080"},
		JWT: config.JWTConfig{
			Secret:             "access-secret-access-secret-access-secret",
			RefreshSecret:      "refresh-secret-refresh-secret-refresh-secret",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		Tokens:   config.TokenConfig{Length: 64, Expiry: 24 * time.Hour},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost},
	}
}

func newService(t *testing.T) (*Service, sqlmock.Sqlmock, *mockMailer) {
	db, sqlMock := setupMockDB(t)
	mailer := new(mockMailer)
	return NewService(db, testConfig(), logger.Discard(), mailer), sqlMock, mailer
}

func userRows(id uint, email, password string, role auth.Role, active bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "email", "password", "role", "is_active"}).
		AddRow(id, email, password, role, active)
}

func hash(t *testing.T, password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister_EmailTaken(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "Taken@Example.com", Password: "Str0ng!Pwd"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, apperrors.Status(err))
	assert.Equal(t, "A user with this email taken@example.com already exists.", apperrors.Message(err))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestRegister_WeakPassword(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, err := svc.Register(context.Background(), &RegisterRequest{Email: "a@b.com", Password: "weak"})
	assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
}

func TestRegister_Success(t *testing.T) {
	svc, sqlMock, mailer := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "activation_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	sqlMock.ExpectCommit()

	mailer.On("SendActivationEmail", "new@user.com",
		mock.MatchedBy(func(link string) bool {
			return regexp.MustCompile(`^http://localhost:8080/api/v1/accounts/activate\?email=new%40user.com&token=[A-Za-z0-9_-]{64}$`).MatchString(link)
		})).Return(nil)

	u, err := svc.Register(context.Background(), &RegisterRequest{Email: "New@User.com", Password: "Str0ng!Pwd"})
	require.NoError(t, err)
	assert.Equal(t, uint(1), u.ID)
	assert.False(t, u.IsActive)
	assert.Equal(t, auth.RoleUser, u.Role)

	mailer.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(userRows(1, "a@b.com", hash(t, "Str0ng!Pwd"), auth.RoleUser, true))

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "Wr0ng!Pwd"})
	assert.Equal(t, http.StatusUnauthorized, apperrors.Status(err))
	assert.Equal(t, "Invalid email or password.", apperrors.Message(err))
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "who@b.com", Password: "Str0ng!Pwd"})
	assert.Equal(t, http.StatusUnauthorized, apperrors.Status(err))
}

func TestLogin_Inactive(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(userRows(1, "a@b.com", hash(t, "Str0ng!Pwd"), auth.RoleUser, false))

	_, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "Str0ng!Pwd"})
	assert.Equal(t, http.StatusForbidden, apperrors.Status(err))
	assert.Equal(t, "User account is not activated.", apperrors.Message(err))
}

func TestLogin_Success(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(userRows(3, "a@b.com", hash(t, "Str0ng!Pwd"), auth.RoleModerator, true))
	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "refresh_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	sqlMock.ExpectCommit()
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "last_login_at"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	pair, err := svc.Login(context.Background(), &LoginRequest{Email: "a@b.com", Password: "Str0ng!Pwd"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", pair.TokenType)

	claims, err := auth.NewJWTManager(testConfig()).ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, auth.RoleModerator, claims.Role)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestActivate_WrongToken(t *testing.T) {
	svc, sqlMock, mailer := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(userRows(1, "a@b.com", "x", auth.RoleUser, false))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "activation_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at"}).
			AddRow(1, 1, "right-token", time.Now().Add(time.Hour)))

	err := svc.Activate(context.Background(), &ActivateRequest{Email: "a@b.com", Token: "wrong-token"})
	assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
	assert.Equal(t, "Invalid or expired activation token.", apperrors.Message(err))
	mailer.AssertNotCalled(t, "SendActivationCompleteEmail", mock.Anything, mock.Anything)
}

func TestActivate_ExpiredTokenIsDeleted(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(userRows(1, "a@b.com", "x", auth.RoleUser, false))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "activation_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at"}).
			AddRow(1, 1, "tok", time.Now().Add(-time.Minute)))
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "activation_tokens"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	err := svc.Activate(context.Background(), &ActivateRequest{Email: "a@b.com", Token: "tok"})
	assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestActivate_Success(t *testing.T) {
	svc, sqlMock, mailer := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(userRows(1, "a@b.com", "x", auth.RoleUser, false))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "activation_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at"}).
			AddRow(1, 1, "tok", time.Now().Add(time.Hour)))
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "is_active"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "activation_tokens"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	mailer.On("SendActivationCompleteEmail", "a@b.com", "http://localhost:8080/api/v1/accounts/login").Return(nil)

	require.NoError(t, svc.Activate(context.Background(), &ActivateRequest{Email: "a@b.com", Token: "tok"}))
	mailer.AssertExpectations(t)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestRequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	svc, sqlMock, mailer := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	assert.NoError(t, svc.RequestPasswordReset(context.Background(), &PasswordResetRequest{Email: "nobody@b.com"}))
	mailer.AssertNotCalled(t, "SendPasswordResetEmail", mock.Anything, mock.Anything)
}

func TestCompletePasswordReset_BadToken(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
		WillReturnRows(userRows(1, "a@b.com", "x", auth.RoleUser, true))
	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "password_reset_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token", "expires_at"}).
			AddRow(4, 1, "good", time.Now().Add(time.Hour)))
	sqlMock.ExpectBegin()
	sqlMock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "password_reset_tokens"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	err := svc.CompletePasswordReset(context.Background(), &PasswordResetCompleteRequest{Email: "a@b.com", Token: "bad", Password: "N3w!Secret"})
	assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
	assert.Equal(t, "Invalid email or token.", apperrors.Message(err))
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Refresh(context.Background(), "not-a-jwt")
	assert.Equal(t, http.StatusBadRequest, apperrors.Status(err))
}

func TestRefresh_NotStored(t *testing.T) {
	svc, sqlMock, _ := newService(t)

	token, err := auth.NewJWTManager(testConfig()).GenerateRefreshToken(1, "a@b.com")
	require.NoError(t, err)

	sqlMock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "refresh_tokens"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = svc.Refresh(context.Background(), token)
	assert.Equal(t, http.StatusUnauthorized, apperrors.Status(err))
	assert.Equal(t, "Refresh token not found.", apperrors.Message(err))
}
