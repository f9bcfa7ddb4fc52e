// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/cinema-backend/internal/domain/cart"
	"github.com/your-org/cinema-backend/internal/domain/favorite"
	"github.com/your-org/cinema-backend/internal/domain/interaction"
	"github.com/your-org/cinema-backend/internal/domain/movie"
	"github.com/your-org/cinema-backend/internal/domain/order"
	"github.com/your-org/cinema-backend/internal/domain/payment"
	"github.com/your-org/cinema-backend/internal/domain/user"
	"github.com/your-org/cinema-backend/internal/pkg/auth"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// Models lists every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// Accounts
		&user.User{},
		&user.Profile{},
		&user.ActivationToken{},
		&user.PasswordResetToken{},
		&user.RefreshToken{},

		// Catalog
		&movie.Genre{},
		&movie.Star{},
		&movie.Director{},
		&movie.Certification{},
		&movie.Movie{},

		// Social
		&interaction.MovieLike{},
		&interaction.MovieRating{},
		&interaction.MovieComment{},
		&interaction.CommentLike{},
		&favorite.MovieFavorite{},

		// Shopping
		&cart.Cart{},
		&cart.CartItem{},
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},
		&payment.Payment{},
		&payment.PaymentItem{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	for _, model := range Models() {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Users
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Catalog
		"CREATE INDEX IF NOT EXISTS idx_movies_year ON movies(year)",
		"CREATE INDEX IF NOT EXISTS idx_movies_imdb ON movies(imdb DESC)",
		"CREATE INDEX IF NOT EXISTS idx_movies_lower_name ON movies(LOWER(name))",
		"CREATE INDEX IF NOT EXISTS idx_movie_genres_genre ON movie_genres(genre_id)",
		"CREATE INDEX IF NOT EXISTS idx_movie_stars_star ON movie_stars(star_id)",
		"CREATE INDEX IF NOT EXISTS idx_movie_directors_director ON movie_directors(director_id)",

		// Social
		"CREATE INDEX IF NOT EXISTS idx_movie_comments_movie_parent ON movie_comments(movie_id, parent_id)",
		"CREATE INDEX IF NOT EXISTS idx_movie_likes_movie_type ON movie_likes(movie_id, like_type)",

		// Orders and payments
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_payments_user_status ON payments(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_payments_created_at ON payments(created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts development data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedStaff(); err != nil {
		return fmt.Errorf("failed to seed staff accounts: %w", err)
	}

	if err := m.seedMetadata(); err != nil {
		return fmt.Errorf("failed to seed metadata: %w", err)
	}

	if err := m.seedMovies(); err != nil {
		return fmt.Errorf("failed to seed movies: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

type seedAccount struct {
	email    string
	password string
	role     auth.Role
}

// seedStaff creates one active account per staff role
func (m *Migration) seedStaff() error {
	log.Println("👤 Seeding staff accounts...")

	accounts := []seedAccount{
		{"admin@example.com", "Admin#2024cinema", auth.RoleAdmin},
		{"moderator@example.com", "Moder#2024cinema", auth.RoleModerator},
		{"viewer@example.com", "Viewer#2024cinema", auth.RoleUser},
	}

	for _, acc := range accounts {
		var existing user.User
		err := m.db.Where("email = ?", acc.email).First(&existing).Error
		if err == nil {
			log.Printf("⏭️ %s already exists with ID: %d", acc.email, existing.ID)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(acc.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		u := user.User{
			Email:    acc.email,
			Password: string(hashed),
			Role:     acc.role,
			IsActive: true,
		}
		if err := m.db.Create(&u).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", acc.email, err)
		}
		log.Printf("✅ Created %s account: %s (password: %s)", acc.role, acc.email, acc.password)
	}

	return nil
}

// seedMetadata creates the lookup tables movies reference
func (m *Migration) seedMetadata() error {
	log.Println("🏷️ Seeding metadata...")

	doNothing := clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}

	certifications := []movie.Certification{{Name: "G"}, {Name: "PG"}, {Name: "PG-13"}, {Name: "R"}}
	genres := []movie.Genre{{Name: "Action"}, {Name: "Crime"}, {Name: "Drama"}, {Name: "Sci-Fi"}, {Name: "Thriller"}}
	directors := []movie.Director{{Name: "Michael Mann"}, {Name: "Christopher Nolan"}, {Name: "Denis Villeneuve"}}
	stars := []movie.Star{{Name: "Al Pacino"}, {Name: "Robert De Niro"}, {Name: "Christian Bale"}, {Name: "Amy Adams"}}

	for _, batch := range []interface{}{&certifications, &genres, &directors, &stars} {
		if err := m.db.Clauses(doNothing).Create(batch).Error; err != nil {
			return err
		}
	}
	return nil
}

type seedMovie struct {
	name          string
	year, minutes int
	imdb          float64
	votes         int
	price         string
	certification string
	genres        []string
	directors     []string
	stars         []string
	description   string
}

// seedMovies creates a few sample movies with their metadata
func (m *Migration) seedMovies() error {
	log.Println("🎬 Seeding sample movies...")

	samples := []seedMovie{
		{"Heat", 1995, 170, 8.3, 700000, "9.99", "R", []string{"Action", "Crime", "Drama"},
			[]string{"Michael Mann"}, []string{"Al Pacino", "Robert De Niro"},
			"A group of high-end professional thieves start to feel the heat from the LAPD."},
		{"The Prestige", 2006, 130, 8.5, 1400000, "7.49", "PG-13", []string{"Drama", "Thriller"},
			[]string{"Christopher Nolan"}, []string{"Christian Bale"},
			"Two stage magicians engage in a battle to create the ultimate illusion."},
		{"Arrival", 2016, 116, 7.9, 750000, "5.99", "PG-13", []string{"Drama", "Sci-Fi"},
			[]string{"Denis Villeneuve"}, []string{"Amy Adams"},
			"A linguist works with the military to communicate with alien lifeforms."},
	}

	for _, s := range samples {
		var count int64
		if err := m.db.Model(&movie.Movie{}).
			Where("name = ? AND year = ? AND time = ?", s.name, s.year, s.minutes).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		var cert movie.Certification
		if err := m.db.Where("name = ?", s.certification).First(&cert).Error; err != nil {
			return err
		}
		var genres []movie.Genre
		var directors []movie.Director
		var stars []movie.Star
		m.db.Where("name IN ?", s.genres).Find(&genres)
		m.db.Where("name IN ?", s.directors).Find(&directors)
		m.db.Where("name IN ?", s.stars).Find(&stars)

		mv := movie.Movie{
			Name:            s.name,
			Year:            s.year,
			Time:            s.minutes,
			IMDb:            s.imdb,
			Votes:           s.votes,
			Description:     s.description,
			Price:           decimal.RequireFromString(s.price),
			CertificationID: cert.ID,
			Genres:          genres,
			Directors:       directors,
			Stars:           stars,
		}
		if err := m.db.Omit("Certification", "Genres.*", "Directors.*", "Stars.*").Create(&mv).Error; err != nil {
			return err
		}
		log.Printf("✅ Created movie: %s (%d)", s.name, s.year)
	}
	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Reverse dependency order
	tables := []string{
		"payment_items",
		"payments",
		"order_status_history",
		"order_items",
		"orders",
		"cart_items",
		"carts",
		"movie_favorites",
		"comment_likes",
		"movie_comments",
		"movie_ratings",
		"movie_likes",
		"movie_genres",
		"movie_directors",
		"movie_stars",
		"movies",
		"certifications",
		"directors",
		"stars",
		"genres",
		"refresh_tokens",
		"password_reset_tokens",
		"activation_tokens",
		"user_profiles",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo logs the row count of every table
func (m *Migration) GetTableInfo() error {
	var tables []string

	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
