package main

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"corruption-reporting-portal/pkg/audit"
	"corruption-reporting-portal/pkg/config"
	"corruption-reporting-portal/pkg/database"
	"corruption-reporting-portal/pkg/mailer"
	"corruption-reporting-portal/pkg/middleware"
	"corruption-reporting-portal/pkg/response"
	"corruption-reporting-portal/services/auth-service/models"
	"corruption-reporting-portal/services/auth-service/utils"

	"gorm.io/gorm"
)

const twoFactorTTL = 10 * time.Minute

var (
	db        *gorm.DB
	trail     *audit.Trail
	mail      *mailer.Mailer
	jwtSecret []byte
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// isValidPassword checks operator password strength.
func isValidPassword(password string) (bool, string) {
	if len(password) < 8 {
		return false, "Password must be at least 8 characters"
	}
	if len(password) > 128 {
		return false, "Password too long"
	}
	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case c >= 'A' && c <= 'Z':
			hasUpper = true
		case c >= 'a' && c <= 'z':
			hasLower = true
		case c >= '0' && c <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return false, "Password must contain an upper-case letter, a lower-case letter and a digit"
	}
	return true, ""
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] Configuration invalid: %v", err)
	}
	jwtSecret = cfg.JWTSecret

	db, err = database.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.TempCode{}); err != nil {
		log.Fatalf("[ERROR] Migration failed: %v", err)
	}

	mongoDB, err := database.ConnectMongo(cfg.MongoURI, "portal_audit")
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to MongoDB: %v", err)
	}
	trail = audit.NewTrail(mongoDB)

	mail = mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	auth := middleware.NewAuth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/request-2fa", request2FAHandler)
	mux.HandleFunc("/api/auth/login", loginHandler)
	mux.HandleFunc("/api/auth/me", auth.Middleware(meHandler))
	mux.HandleFunc("/admin/users", auth.RequireAdmin(usersHandler))
	mux.HandleFunc("/admin/users/", auth.RequireAdmin(userDetailHandler))
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", middleware.GetMetricsHandler())

	handler := middleware.TraceMiddleware(
		middleware.MetricsMiddleware(
			middleware.LoggerMiddleware(mux),
		),
	)

	port := ":8081"
	log.Printf("[INFO] Auth Service running on port %s", port)
	if err := http.ListenAndServe(port, handler); err != nil {
		log.Fatalf("[ERROR] Server failed: %v", err)
	}
}

// request2FAHandler issues a fresh 2FA code for an admin account. The code
// row is persisted regardless of email delivery; the send outcome is
// reported separately so a flaky SMTP server cannot block issuance.
func request2FAHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var input struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Email == "" {
		response.Error(w, http.StatusBadRequest, "Email required")
		return
	}

	var admin models.User
	if err := db.Where("email = ? AND is_admin = ?", input.Email, true).First(&admin).Error; err != nil {
		response.Error(w, http.StatusNotFound, "Administrator account not found")
		return
	}

	code, err := mailer.GenerateCode()
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "2FA code generation", err)
		response.Error(w, http.StatusInternalServerError, "Failed to generate security code")
		return
	}

	tempCode := models.TempCode{
		Email:     admin.Email,
		Code:      code,
		ExpiresAt: time.Now().Add(twoFactorTTL),
	}
	if err := db.Create(&tempCode).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "2FA code persistence", err)
		response.Error(w, http.StatusInternalServerError, "Failed to issue security code")
		return
	}

	sent := mail.Send2FA(admin.Email, code)
	if !sent {
		middleware.LogWarn(middleware.GetTraceID(r), "2FA code issued but email delivery failed for "+admin.Email)
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Security code issued",
		"expiresIn": "10 minutes",
		"emailSent": sent,
	})
}

// loginHandler authenticates an admin with password plus emailed code. The
// code is consumed on the first successful match; expired or already-used
// codes are indistinguishable from nonexistent ones.
func loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if input.Email == "" || input.Password == "" || input.Code == "" {
		response.Error(w, http.StatusBadRequest, "Email, password and security code are required")
		return
	}

	var admin models.User
	if err := db.Where("email = ? AND is_admin = ?", input.Email, true).First(&admin).Error; err != nil {
		log.Printf("[WARN] Failed admin login attempt")
		response.Error(w, http.StatusUnauthorized, "Invalid administrator credentials")
		return
	}

	if !utils.CheckPasswordHash(input.Password, admin.Password) {
		log.Printf("[WARN] Invalid password attempt for admin account")
		response.Error(w, http.StatusUnauthorized, "Invalid administrator credentials")
		return
	}

	var tempCode models.TempCode
	err := db.Where("email = ? AND code = ? AND used = ? AND expires_at > ?",
		input.Email, input.Code, false, time.Now()).
		Order("created_at DESC").
		First(&tempCode).Error
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Invalid or expired security code")
		return
	}

	if err := db.Model(&tempCode).Update("used", true).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "2FA code consumption", err)
		response.Error(w, http.StatusInternalServerError, "Failed to complete login")
		return
	}

	token, err := utils.GenerateJWT(jwtSecret, admin.ID, admin.Email, true)
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "JWT generation", err)
		response.Error(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	recordActivity(r, admin.Email, admin.ID, "admin.login", "", "")

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Administrator login successful",
		"token":   token,
		"user": map[string]interface{}{
			"id":       admin.ID,
			"name":     admin.Name,
			"email":    admin.Email,
			"is_admin": true,
		},
	})
}

func meHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFrom(r)
	if !ok {
		response.Error(w, http.StatusInternalServerError, "Failed to retrieve user context")
		return
	}
	var user models.User
	if err := db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		response.Error(w, http.StatusNotFound, "User not found")
		return
	}
	response.JSON(w, http.StatusOK, user)
}

func usersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		listUsers(w, r)
	case http.MethodPost:
		createUser(w, r)
	default:
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func listUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := db.Order("created_at DESC").Find(&users).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "user listing", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	response.JSON(w, http.StatusOK, users)
}

func createUser(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		IsAdmin  bool   `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	var details []string
	if !isValidEmail(input.Email) {
		details = append(details, "email: invalid email format")
	}
	if valid, msg := isValidPassword(input.Password); !valid {
		details = append(details, "password: "+msg)
	}
	if len(strings.TrimSpace(input.Name)) < 2 {
		details = append(details, "name: too short (minimum 2 characters)")
	}
	if len(details) > 0 {
		response.Error(w, http.StatusBadRequest, "Invalid user data", details...)
		return
	}

	var existing models.User
	if err := db.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		response.Error(w, http.StatusConflict, "Email already registered")
		return
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "password hashing", err)
		response.Error(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user := models.User{
		Email:    input.Email,
		Password: hashed,
		Name:     strings.TrimSpace(input.Name),
		Phone:    input.Phone,
		IsAdmin:  input.IsAdmin,
	}
	if err := db.Create(&user).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "user creation", err)
		response.Error(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	if claims, ok := middleware.ClaimsFrom(r); ok {
		recordActivity(r, claims.Email, claims.UserID, "user.create", user.ID, user.Email)
	}

	response.JSON(w, http.StatusCreated, user)
}

func userDetailHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/users/")
	if rest == "" {
		response.Error(w, http.StatusBadRequest, "Missing user ID")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/activity"); ok {
		if r.Method != http.MethodGet {
			response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		userActivityHandler(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		getUser(w, r, rest)
	case http.MethodPut:
		updateUser(w, r, rest)
	case http.MethodDelete:
		deleteUser(w, r, rest)
	default:
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func getUser(w http.ResponseWriter, r *http.Request, id string) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		response.Error(w, http.StatusNotFound, "User not found")
		return
	}
	response.JSON(w, http.StatusOK, user)
}

func updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		response.Error(w, http.StatusNotFound, "User not found")
		return
	}

	var input struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		IsAdmin  *bool  `json:"is_admin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(input.Name); name != "" {
		if len(name) < 2 {
			response.Error(w, http.StatusBadRequest, "Invalid user data", "name: too short (minimum 2 characters)")
			return
		}
		updates["name"] = name
	}
	if input.Phone != "" {
		updates["phone"] = input.Phone
	}
	if input.Password != "" {
		if valid, msg := isValidPassword(input.Password); !valid {
			response.Error(w, http.StatusBadRequest, "Invalid user data", "password: "+msg)
			return
		}
		hashed, err := utils.HashPassword(input.Password)
		if err != nil {
			middleware.LogError(middleware.GetTraceID(r), "password hashing", err)
			response.Error(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		updates["password"] = hashed
	}
	if input.IsAdmin != nil {
		updates["is_admin"] = *input.IsAdmin
	}
	if len(updates) == 0 {
		response.Error(w, http.StatusBadRequest, "No updatable fields provided")
		return
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "user update", err)
		response.Error(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	if claims, ok := middleware.ClaimsFrom(r); ok {
		recordActivity(r, claims.Email, claims.UserID, "user.update", user.ID, user.Email)
	}

	response.JSON(w, http.StatusOK, user)
}

func deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	claims, _ := middleware.ClaimsFrom(r)
	if claims != nil && claims.UserID == id {
		response.Error(w, http.StatusBadRequest, "Administrators cannot delete their own account")
		return
	}

	result := db.Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		middleware.LogError(middleware.GetTraceID(r), "user deletion", result.Error)
		response.Error(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if result.RowsAffected == 0 {
		response.Error(w, http.StatusNotFound, "User not found")
		return
	}

	if claims != nil {
		recordActivity(r, claims.Email, claims.UserID, "user.delete", id, "")
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func userActivityHandler(w http.ResponseWriter, r *http.Request, id string) {
	entries, err := trail.ByActor(r.Context(), id, 100)
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "activity lookup", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch user activity")
		return
	}
	response.JSON(w, http.StatusOK, entries)
}

func recordActivity(r *http.Request, actor, actorID, action, target, detail string) {
	if err := trail.Record(r.Context(), audit.Entry{
		Actor:   actor,
		ActorID: actorID,
		Action:  action,
		Target:  target,
		Detail:  detail,
		TraceID: middleware.GetTraceID(r),
	}); err != nil {
		middleware.LogError(middleware.GetTraceID(r), "audit write", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "UP",
		"service": "auth-service",
	}
	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		health["status"] = "DOWN"
		health["database"] = "disconnected"
		response.JSON(w, http.StatusServiceUnavailable, health)
		return
	}
	health["database"] = "connected"
	response.JSON(w, http.StatusOK, health)
}
