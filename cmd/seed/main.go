package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"todoapp/internal/models"
)

// seed provisions a user account. User rows are immutable through the
// API, so this command is the only way they come into existence.
func main() {
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DATABASE_DSN", "todoapp.db")
	viper.SetDefault("SEED_EMAIL", "demo@example.com")
	viper.SetDefault("SEED_USERNAME", "demo")
	viper.SetDefault("SEED_PASSWORD", "demo1234")
	viper.AutomaticEnv()

	db, err := openDatabase(viper.GetString("DB_DRIVER"), viper.GetString("DATABASE_DSN"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Todo{}, &models.Tag{}, &models.TodoTag{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	email := viper.GetString("SEED_EMAIL")

	var existing models.User
	if err := db.First(&existing, "email = ?", email).Error; err == nil {
		log.Printf("User %s already exists (ID: %d), nothing to do", email, existing.ID)
		return
	} else if err != gorm.ErrRecordNotFound {
		log.Fatalf("Failed to check for existing user: %v", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(viper.GetString("SEED_PASSWORD")), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := models.User{
		Email:    email,
		Username: viper.GetString("SEED_USERNAME"),
		Password: string(hashedPassword),
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	log.Printf("Seeded user %s (ID: %d)", user.Email, user.ID)
}

func openDatabase(driver, dsn string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "sqlite":
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access underlying connection pool: %w", err)
	}
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}
