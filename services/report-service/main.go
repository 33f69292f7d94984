package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"corruption-reporting-portal/pkg/audit"
	"corruption-reporting-portal/pkg/config"
	"corruption-reporting-portal/pkg/database"
	"corruption-reporting-portal/pkg/middleware"
	"corruption-reporting-portal/pkg/queue"
	"corruption-reporting-portal/pkg/response"
	"corruption-reporting-portal/pkg/security"
	"corruption-reporting-portal/services/report-service/intake"
	"corruption-reporting-portal/services/report-service/models"
	"corruption-reporting-portal/services/report-service/store"
	"corruption-reporting-portal/services/report-service/validation"

	"gorm.io/gorm"
)

const maxBodyBytes = 1 << 20 // submissions are JSON metadata only; files go through the upload service

var (
	reports  store.ReportStore
	pipeline *intake.Pipeline
	cipher   *security.Cipher
	trail    *audit.Trail
	auth     *middleware.Auth
)

var statusMessages = map[string]string{
	models.StatusNew:           "Report received and awaiting review",
	models.StatusInvestigating: "Investigation in progress",
	models.StatusResolved:      "Case resolved",
	models.StatusClosed:        "Case closed",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] Configuration invalid: %v", err)
	}

	cipher, err = security.NewCipher(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("[ERROR] Cipher initialization failed: %v", err)
	}

	db, err := database.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.Report{}, &models.UploadedFile{}); err != nil {
		log.Fatalf("[ERROR] Migration failed: %v", err)
	}
	reports = store.NewGorm(db)

	mongoDB, err := database.ConnectMongo(cfg.MongoURI, "portal_audit")
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to MongoDB: %v", err)
	}
	trail = audit.NewTrail(mongoDB)

	conn, ch, err := queue.ConnectRabbitMQ(cfg.AMQPURI)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to RabbitMQ: %v", err)
	}
	defer conn.Close()
	defer ch.Close()
	log.Println("[OK] Connected to RabbitMQ")

	pipeline = intake.NewPipeline(reports, cipher, queue.NewPublisher(ch, "report_queue"))
	auth = middleware.NewAuth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/reports", submitHandler)
	mux.HandleFunc("/api/reports/track/", trackHandler)
	mux.HandleFunc("/admin/reports", auth.RequireAdmin(adminReportsHandler))
	mux.HandleFunc("/admin/reports/", auth.RequireAdmin(adminReportDetailHandler))
	mux.HandleFunc("/admin/analytics", auth.RequireAdmin(adminAnalyticsHandler))
	mux.HandleFunc("/health", healthHandler(db))
	mux.Handle("/metrics", middleware.GetMetricsHandler())

	handler := middleware.TraceMiddleware(
		middleware.MetricsMiddleware(
			middleware.LoggerMiddleware(mux),
		),
	)

	port := ":8080"
	log.Printf("[INFO] Report Service running on port %s", port)
	if err := http.ListenAndServe(port, handler); err != nil {
		log.Fatalf("[ERROR] Server failed: %v", err)
	}
}

// submitHandler is the public intake endpoint. No authentication: anonymous
// submitters must be able to reach it.
func submitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	receipt, failure := pipeline.Process(r.Context(), body, clientIP(r), r.UserAgent())
	if failure != nil {
		response.Error(w, failure.StatusCode(), failure.Message(), failure.Details...)
		return
	}

	middleware.LogInfo(middleware.GetTraceID(r), "report created: "+receipt.ReportID)
	response.JSON(w, http.StatusCreated, receipt)
}

// trackHandler is the public lookup by tracking code. The code shape is
// checked before any storage access; the response carries case status only,
// never personal fields.
func trackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	code := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/api/reports/track/"))
	if !validation.ValidTrackingCode(code) {
		response.Error(w, http.StatusBadRequest, "Invalid tracking code (8 alphanumeric characters required)")
		return
	}

	report, err := reports.FindByTrackingCode(r.Context(), code)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "No report found for this tracking code")
		return
	}
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "tracking lookup", err)
		response.Error(w, http.StatusInternalServerError, "Failed to look up report")
		return
	}

	message, ok := statusMessages[report.Status]
	if !ok {
		message = "Unknown status"
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"reportId":      report.ID,
		"status":        report.Status,
		"statusMessage": message,
		"filesCount":    len(report.FileList()),
		"createdAt":     report.CreatedAt,
		"updatedAt":     report.UpdatedAt,
	})
}

// adminView is the policy-projected shape an authenticated admin sees.
// Encrypted blobs and abuse-trace fields are excluded by the model's JSON
// tags; reporter identity comes exclusively from the projection.
type adminView struct {
	models.Report
	FileList []models.FileMeta `json:"files"`
	security.ReporterIdentity
}

func projectForAdmin(report *models.Report) (*adminView, error) {
	identity, err := cipher.Project(
		security.AnonymityLevel(report.AnonymityLevel),
		security.RoleAdmin,
		security.EncryptedFields{
			Name:  report.ReporterNameEncrypted,
			Phone: report.ReporterPhoneEncrypted,
			Email: report.ReporterEmailEncrypted,
		},
	)
	if err != nil {
		return nil, err
	}
	return &adminView{
		Report:           *report,
		FileList:         report.FileList(),
		ReporterIdentity: identity,
	}, nil
}

func adminReportsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filter := store.Filter{
		Status:   r.URL.Query().Get("status"),
		Sector:   r.URL.Query().Get("sector"),
		Severity: r.URL.Query().Get("severity"),
	}
	if timeRange := r.URL.Query().Get("timeRange"); timeRange != "" {
		filter.Since = sinceFromTimeRange(timeRange)
	}

	list, err := reports.List(r.Context(), filter)
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "admin report listing", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch reports")
		return
	}

	views := make([]*adminView, 0, len(list))
	for i := range list {
		view, err := projectForAdmin(&list[i])
		if err != nil {
			// Decryption failure means corruption or key mismatch, never
			// "not provided". Fail the read and page on it.
			middleware.LogError(middleware.GetTraceID(r), "reporter projection for "+list[i].ID, err)
			response.Error(w, http.StatusInternalServerError, "Failed to read protected report data")
			return
		}
		views = append(views, view)
	}

	response.JSON(w, http.StatusOK, views)
}

func adminReportDetailHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/reports/")
	if rest == "" {
		response.Error(w, http.StatusBadRequest, "Missing report ID")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/status"); ok {
		if r.Method != http.MethodPut {
			response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		updateStatusHandler(w, r, id)
		return
	}

	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	report, err := reports.FindByID(r.Context(), rest)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "admin report fetch", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch report")
		return
	}

	view, err := projectForAdmin(report)
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "reporter projection for "+report.ID, err)
		response.Error(w, http.StatusInternalServerError, "Failed to read protected report data")
		return
	}

	response.JSON(w, http.StatusOK, view)
}

func updateStatusHandler(w http.ResponseWriter, r *http.Request, id string) {
	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if !models.ValidStatuses[input.Status] {
		response.Error(w, http.StatusBadRequest, "Invalid status",
			"status: must be one of [new investigating resolved closed]")
		return
	}

	report, err := reports.UpdateStatus(r.Context(), id, input.Status)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "status update", err)
		response.Error(w, http.StatusInternalServerError, "Failed to update status")
		return
	}

	if claims, ok := middleware.ClaimsFrom(r); ok {
		if err := trail.Record(r.Context(), audit.Entry{
			Actor:   claims.Email,
			ActorID: claims.UserID,
			Action:  "report.status_update",
			Target:  id,
			Detail:  input.Status,
			TraceID: middleware.GetTraceID(r),
		}); err != nil {
			middleware.LogError(middleware.GetTraceID(r), "audit write", err)
		}
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Status updated",
		"reportId":  report.ID,
		"status":    report.Status,
		"updatedAt": report.UpdatedAt,
	})
}

func adminAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	timeRange := r.URL.Query().Get("timeRange")
	summary, err := reports.Summarize(r.Context(), sinceFromTimeRange(timeRange), normalizeTimeRange(timeRange))
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "analytics", err)
		response.Error(w, http.StatusInternalServerError, "Failed to compute analytics")
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

func normalizeTimeRange(timeRange string) string {
	switch timeRange {
	case "7d", "90d":
		return timeRange
	default:
		return "30d"
	}
}

func sinceFromTimeRange(timeRange string) time.Time {
	days := 30
	switch timeRange {
	case "7d":
		days = 7
	case "90d":
		days = 90
	}
	return time.Now().AddDate(0, 0, -days)
}

// clientIP is kept for abuse tracing only; it is stored and never surfaced.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if real := r.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	return r.RemoteAddr
}

func healthHandler(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":  "UP",
			"service": "report-service",
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
}
