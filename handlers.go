package main

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/YathinChandra64/siri-taste-craft-sub000/models"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/ocr"
	"github.com/YathinChandra64/siri-taste-craft-sub000/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// maxScreenshotBytes caps a single payment-screenshot upload.
const maxScreenshotBytes = 5 * 1024 * 1024

// allowedScreenshotTypes is the accepted upload whitelist.
var allowedScreenshotTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

func setupRoutes(r *gin.Engine) {
	r.POST("/register", registerHandler)
	r.POST("/login", loginHandler)
	r.POST("/refresh", refreshHandler)
	r.POST("/revoke_refresh", revokeRefreshHandler)

	authGroup := r.Group("")
	authGroup.Use(jwtAuthMiddleware())
	authGroup.GET("/me", meHandler)
	authGroup.GET("/payments/instructions", upiInstructionsHandler)
	authGroup.POST("/payments/:order_id", submitPaymentHandler)
	authGroup.POST("/payments/:order_id/resubmit", resubmitPaymentHandler)
	authGroup.POST("/payments/:order_id/reference", manualReferenceHandler)
	authGroup.GET("/payments/:order_id", paymentStatusHandler)

	adminGroup := authGroup.Group("/admin")
	adminGroup.Use(adminOnlyMiddleware())
	adminGroup.GET("/payments/pending", listPendingPaymentsHandler)
	adminGroup.POST("/payments/:id/verify", verifyPaymentHandler)
	adminGroup.PUT("/upi", updateUpiDestinationHandler)
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		role, _ := claims["role"].(string)
		c.Set("username", username)
		if role != "" {
			c.Set("role", role)
		}
		c.Next()
	}
}

func adminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get("role")
		if role != models.RoleAdministrator {
			c.JSON(http.StatusForbidden, gin.H{"error": "administrator only"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func meHandler(c *gin.Context) {
	usernameVal, _ := c.Get("username")
	if usernameVal == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "context missing username"})
		return
	}
	username := usernameVal.(string)
	c.JSON(http.StatusOK, gin.H{"username": username})
}

// getUserFromContext fetches the currently authenticated user using the username set by jwtAuthMiddleware
func getUserFromContext(c *gin.Context) (*models.User, bool) {
	unameVal, _ := c.Get("username")
	if unameVal == nil {
		return nil, false
	}
	uname := unameVal.(string)
	var user models.User
	if err := db.Where("username = ?", uname).First(&user).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := RegisterUser(req.Username, req.Email, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	// Generate JWT token. Resolve role name from RoleID (we only store role_id).
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// create refresh token
	refreshToken, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString, "refresh_token": refreshToken})
}

// createAndStoreRefreshToken generates a random refresh token, stores its hash with expiry and returns the raw token string
func createAndStoreRefreshToken(userID uint) (string, error) {
	// generate random 32-byte token (hex)
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b)
	// hash for storage
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	rt := models.RefreshToken{UserID: userID, TokenHash: th, ExpiresAt: time.Now().Add(30 * 24 * time.Hour)}
	if err := db.Create(&rt).Error; err != nil {
		return "", err
	}
	return token, nil
}

// helper to find refresh token record by raw token string
func findRefreshTokenByRaw(token string) (*models.RefreshToken, error) {
	h := sha256.Sum256([]byte(token))
	th := hex.EncodeToString(h[:])
	var rt models.RefreshToken
	if err := db.Where("token_hash = ?", th).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

// refreshHandler exchanges a refresh token for a new access token and rotates the refresh token
func refreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil || rt.Revoked || time.Now().After(rt.ExpiresAt) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}
	// load user
	var user models.User
	if err := db.First(&user, rt.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	// create access token
	roleName := ""
	if user.RoleID != nil {
		var r models.Role
		if err := db.First(&r, *user.RoleID).Error; err == nil {
			roleName = r.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"role":     roleName,
		"exp":      time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	// rotate refresh token: revoke existing and create new one
	db.Model(&models.RefreshToken{}).Where("id = ?", rt.ID).Update("revoked", true)
	newRT, err := createAndStoreRefreshToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "refresh_token": newRT})
}

// revokeRefreshHandler revokes a given refresh token (useful on logout)
func revokeRefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, err := findRefreshTokenByRaw(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "refresh token not found"})
		return
	}
	rt.Revoked = true
	if err := db.Save(rt).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "refresh token revoked"})
}

// upiInstructionsHandler echoes the merchant's UPI destination so the
// upload form can show where to send the money.
func upiInstructionsHandler(c *gin.Context) {
	var dest models.UpiDestination
	if err := db.Order("id asc").First(&dest).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "upi destination not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upi_id":       dest.UpiID,
		"display_name": dest.DisplayName,
		"qr_image":     dest.QRImagePath,
		"instructions": dest.Instructions,
	})
}

// orderIDParam parses the :order_id path segment.
func orderIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("order_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return uint(id), true
}

// saveScreenshot validates the multipart upload (exactly one file, size cap,
// type whitelist) and stores it under the upload base.
func saveScreenshot(c *gin.Context, orderID uint) (string, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "screenshot file missing"})
		return "", false
	}
	files := form.File["screenshot"]
	if len(files) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one screenshot file is required"})
		return "", false
	}
	file := files[0]
	if file.Size > maxScreenshotBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return "", false
	}
	if !allowedScreenshotTypes[file.Header.Get("Content-Type")] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type (jpeg, png, webp only)"})
		return "", false
	}

	dir := filepath.Join(uploadBaseDir(), "screenshots")
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mkdir failed"})
		return "", false
	}
	name := fmt.Sprintf("order%d_%d%s", orderID, time.Now().UnixNano(), strings.ToLower(filepath.Ext(file.Filename)))
	fullPath := filepath.Join(dir, name)
	if err := c.SaveUploadedFile(file, fullPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return "", false
	}
	return fullPath, true
}

// submitPaymentHandler accepts the first payment screenshot for an order and
// runs it through the verification pipeline.
func submitPaymentHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	path, ok := saveScreenshot(c, orderID)
	if !ok {
		return
	}
	rec, err := manager.Submit(orderID, user.ID, path)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentJSON(rec))
}

// resubmitPaymentHandler consumes one bounded-retry attempt with a fresh
// screenshot after a detection failure or a rejection.
func resubmitPaymentHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	if !userOwnsOrder(c, user, orderID) {
		return
	}
	path, ok := saveScreenshot(c, orderID)
	if !ok {
		return
	}
	rec, err := manager.Resubmit(orderID, path)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentJSON(rec))
}

// manualReferenceHandler is the fallback when detection failed: the customer
// types the UTR shown in their payment app.
func manualReferenceHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	if !userOwnsOrder(c, user, orderID) {
		return
	}
	var req struct {
		Reference string `json:"reference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := manager.SetManualReference(orderID, req.Reference)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentJSON(rec))
}

// paymentStatusHandler is the read surface the rest of the system depends on.
func paymentStatusHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	if !userOwnsOrder(c, user, orderID) {
		return
	}
	view, err := manager.Status(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status query failed"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// listPendingPaymentsHandler returns records awaiting admin review.
func listPendingPaymentsHandler(c *gin.Context) {
	items, err := manager.ListPending(200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// verifyPaymentHandler records an admin approve/reject decision.
func verifyPaymentHandler(c *gin.Context) {
	admin, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}
	var req struct {
		Action string `json:"action" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, ok := payment.ParseAction(req.Action)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be approve or reject"})
		return
	}
	rec, err := manager.Verify(uint(id), admin.ID, action, req.Notes)
	if err != nil {
		respondPaymentError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentJSON(rec))
}

// updateUpiDestinationHandler rewrites the merchant UPI destination
// singleton, recording which admin changed it.
func updateUpiDestinationHandler(c *gin.Context) {
	admin, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		UpiID        string `json:"upi_id" binding:"required"`
		DisplayName  string `json:"display_name" binding:"required"`
		QRImagePath  string `json:"qr_image"`
		Instructions string `json:"instructions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var dest models.UpiDestination
	if err := db.Order("id asc").First(&dest).Error; err != nil {
		dest = models.UpiDestination{}
	}
	dest.UpiID = req.UpiID
	dest.DisplayName = req.DisplayName
	dest.QRImagePath = req.QRImagePath
	dest.Instructions = req.Instructions
	dest.UpdatedByID = &admin.ID
	if err := db.Save(&dest).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "upi destination updated"})
}

// userOwnsOrder enforces order ownership for customer routes; admins pass.
func userOwnsOrder(c *gin.Context, user *models.User, orderID uint) bool {
	role, _ := c.Get("role")
	if role == models.RoleAdministrator {
		return true
	}
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return false
	}
	if order.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}

// paymentJSON is the record shape returned to customers and admins.
func paymentJSON(p *models.Payment) gin.H {
	return gin.H{
		"id":         p.ID,
		"order_id":   p.OrderID,
		"status":     p.Status,
		"reference":  payment.Reference(p),
		"format":     p.ExtractFormat,
		"confidence": p.ExtractConfidence,
		"attempts":   p.AttemptCount,
		"expires_at": p.ExpiresAt,
	}
}

// respondPaymentError maps the pipeline/lifecycle error taxonomy onto HTTP
// statuses so the client can tell "try a clearer photo" from "contact
// support".
func respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrOrderNotFound), errors.Is(err, payment.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrNotOrderOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, payment.ErrPaymentExists), errors.Is(err, payment.ErrDuplicateReference):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrRetryLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrInvalidStateTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, payment.ErrInvalidReference):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ocr.ErrPreprocessingFailed), errors.Is(err, ocr.ErrRecognitionFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not read the screenshot, please retry with a clearer photo"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
