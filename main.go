package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/YathinChandra64/siri-taste-craft-sub000/external/resend"
	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/ocr"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/payment"
)

var jwtSecret []byte // loaded from env JWT_SECRET (fallback to dev default)

var (
	engine  *ocr.Engine
	manager *payment.Manager
)

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}
	jwtSecret = []byte(secret)

	// Support a lightweight migrate command: `./app migrate`
	// It runs AutoMigrate and seeding then exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		initDB()
		fmt.Println("migration and seeding completed")
		return
	}

	initDB()

	engine = ocr.NewEngine()
	defer engine.Close()
	manager = payment.NewManager(
		payment.NewStore(db),
		payment.NewOrderStore(db),
		&payment.ScreenshotPipeline{Engine: engine},
		buildNotifier(),
		paymentConfigFromEnv(),
	)

	r := gin.Default()

	setupRoutes(r)

	r.Run(":8081")
}

// buildNotifier uses the Resend mailer when RESEND_API_KEY is configured
// and falls back to log-only dispatch otherwise.
func buildNotifier() payment.Notifier {
	mailer, err := resend.NewMailer("Siri Taste Craft <payments@siritastecraft.example>", func(userID uint) (string, error) {
		var u models.User
		if err := db.First(&u, userID).Error; err != nil {
			return "", err
		}
		return u.Email, nil
	})
	if err != nil {
		log.Printf("notifications: %v; falling back to log-only dispatch", err)
		return payment.LogNotifier{}
	}
	return mailer
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
