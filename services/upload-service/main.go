package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"corruption-reporting-portal/pkg/audit"
	"corruption-reporting-portal/pkg/config"
	"corruption-reporting-portal/pkg/database"
	"corruption-reporting-portal/pkg/middleware"
	"corruption-reporting-portal/pkg/response"
	"corruption-reporting-portal/services/report-service/models"
	"corruption-reporting-portal/services/report-service/store"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gorm.io/gorm"
)

const maxUploadSize = 10 << 20 // 10 MB

// Both the extension and the declared MIME type must be on the list; a
// mismatch between the two rejects the upload.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

var allowedMimetypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"application/pdf": true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

var (
	db          *gorm.DB
	reports     store.ReportStore
	objectStore *minio.Client
	bucket      string
	trail       *audit.Trail
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[ERROR] Configuration invalid: %v", err)
	}
	bucket = cfg.MinioBucket

	db, err = database.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to database: %v", err)
	}
	if err := db.AutoMigrate(&models.UploadedFile{}); err != nil {
		log.Fatalf("[ERROR] Migration failed: %v", err)
	}
	reports = store.NewGorm(db)

	objectStore, err = minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to object storage: %v", err)
	}
	if err := ensureBucket(context.Background()); err != nil {
		log.Fatalf("[ERROR] Failed to prepare bucket %q: %v", bucket, err)
	}

	mongoDB, err := database.ConnectMongo(cfg.MongoURI, "portal_audit")
	if err != nil {
		log.Fatalf("[ERROR] Failed to connect to MongoDB: %v", err)
	}
	trail = audit.NewTrail(mongoDB)

	auth := middleware.NewAuth(cfg.JWTSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/uploads", uploadHandler)
	mux.HandleFunc("/admin/uploads/", auth.RequireAdmin(adminUploadsHandler))
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", middleware.GetMetricsHandler())

	handler := middleware.TraceMiddleware(
		middleware.MetricsMiddleware(
			middleware.LoggerMiddleware(mux),
		),
	)

	port := ":8082"
	log.Printf("[INFO] Upload Service running on port %s", port)
	if err := http.ListenAndServe(port, handler); err != nil {
		log.Fatalf("[ERROR] Server failed: %v", err)
	}
}

func ensureBucket(ctx context.Context) error {
	exists, err := objectStore.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return objectStore.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}

// uploadHandler accepts one evidence file attached to an existing report.
// Submitting evidence needs no account, like the report itself.
func uploadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+4096)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.Error(w, http.StatusBadRequest, "File exceeds the 10 MB limit or the form is malformed")
		return
	}

	reportID := strings.TrimSpace(r.FormValue("reportId"))
	if reportID == "" {
		response.Error(w, http.StatusBadRequest, "reportId is required")
		return
	}

	report, err := reports.FindByID(r.Context(), reportID)
	if err != nil {
		if err == store.ErrNotFound {
			response.Error(w, http.StatusNotFound, "Report not found")
			return
		}
		middleware.LogError(middleware.GetTraceID(r), "report lookup", err)
		response.Error(w, http.StatusInternalServerError, "Failed to verify report")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		response.Error(w, http.StatusBadRequest, "File exceeds the 10 MB limit")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	mimetype := header.Header.Get("Content-Type")
	if !allowedExtensions[ext] || !allowedMimetypes[mimetype] {
		response.Error(w, http.StatusBadRequest, "File type not allowed")
		return
	}

	objectKey := fmt.Sprintf("reports/%s/%s-%s", report.ID, uuid.New().String(), sanitizeFilename(header.Filename))

	_, err = objectStore.PutObject(r.Context(), bucket, objectKey, file, header.Size,
		minio.PutObjectOptions{ContentType: mimetype})
	if err != nil {
		middleware.LogError(middleware.GetTraceID(r), "object upload", err)
		response.Error(w, http.StatusInternalServerError, "Failed to store file")
		return
	}

	uploaded := models.UploadedFile{
		ReportID:     report.ID,
		OriginalName: header.Filename,
		ObjectKey:    objectKey,
		Mimetype:     mimetype,
		Size:         header.Size,
		URL:          "/" + bucket + "/" + objectKey,
	}
	if err := db.Create(&uploaded).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "file metadata persistence", err)
		// The orphan object is removed so storage and metadata stay in step.
		if rmErr := objectStore.RemoveObject(context.Background(), bucket, objectKey, minio.RemoveObjectOptions{}); rmErr != nil {
			middleware.LogError(middleware.GetTraceID(r), "orphan object cleanup", rmErr)
		}
		response.Error(w, http.StatusInternalServerError, "Failed to record file")
		return
	}

	meta := models.FileMeta{
		Name:       header.Filename,
		Size:       header.Size,
		Type:       mimetype,
		URL:        uploaded.URL,
		UploadedAt: uploaded.UploadedAt,
	}
	if err := reports.AppendFile(r.Context(), report.ID, meta); err != nil {
		middleware.LogError(middleware.GetTraceID(r), "report file list update", err)
	}

	response.JSON(w, http.StatusCreated, uploaded)
}

func adminUploadsHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/admin/uploads/")
	if rest == "" {
		response.Error(w, http.StatusBadRequest, "Missing identifier")
		return
	}

	if id, ok := strings.CutPrefix(rest, "file/"); ok {
		if r.Method != http.MethodDelete {
			response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		deleteFileHandler(w, r, id)
		return
	}

	if r.Method != http.MethodGet {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	listFilesHandler(w, r, rest)
}

// listFilesHandler returns the files of one report with short-lived
// presigned download links.
func listFilesHandler(w http.ResponseWriter, r *http.Request, reportID string) {
	var files []models.UploadedFile
	if err := db.Where("report_id = ?", reportID).Order("uploaded_at ASC").Find(&files).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "file listing", err)
		response.Error(w, http.StatusInternalServerError, "Failed to fetch files")
		return
	}

	for i := range files {
		presigned, err := objectStore.PresignedGetObject(r.Context(), bucket, files[i].ObjectKey, 15*time.Minute, nil)
		if err != nil {
			middleware.LogError(middleware.GetTraceID(r), "presigned url", err)
			continue
		}
		files[i].URL = presigned.String()
	}

	response.JSON(w, http.StatusOK, files)
}

func deleteFileHandler(w http.ResponseWriter, r *http.Request, rawID string) {
	fileID, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid file ID")
		return
	}

	var file models.UploadedFile
	if err := db.First(&file, "id = ?", fileID).Error; err != nil {
		response.Error(w, http.StatusNotFound, "File not found")
		return
	}

	if err := objectStore.RemoveObject(r.Context(), bucket, file.ObjectKey, minio.RemoveObjectOptions{}); err != nil {
		middleware.LogError(middleware.GetTraceID(r), "object deletion", err)
		response.Error(w, http.StatusInternalServerError, "Failed to delete file")
		return
	}
	if err := db.Delete(&file).Error; err != nil {
		middleware.LogError(middleware.GetTraceID(r), "file metadata deletion", err)
		response.Error(w, http.StatusInternalServerError, "Failed to delete file record")
		return
	}

	if claims, ok := middleware.ClaimsFrom(r); ok {
		if err := trail.Record(r.Context(), audit.Entry{
			Actor:   claims.Email,
			ActorID: claims.UserID,
			Action:  "file.delete",
			Target:  file.ReportID,
			Detail:  file.OriginalName,
			TraceID: middleware.GetTraceID(r),
		}); err != nil {
			middleware.LogError(middleware.GetTraceID(r), "audit write", err)
		}
	}

	response.JSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

// sanitizeFilename keeps the original name readable in the object key while
// stripping path separators and whitespace.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	health := map[string]interface{}{
		"status":  "UP",
		"service": "upload-service",
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
