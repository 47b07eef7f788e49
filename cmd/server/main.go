package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"facemark/internal/config"
	"facemark/internal/directory"
	"facemark/internal/export"
	"facemark/internal/httpmiddleware"
	"facemark/internal/ledger"
	"facemark/internal/metrics"
	"facemark/internal/recognizer"
	"facemark/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	st, redisStore, err := buildStore(cfg)
	if err != nil {
		return fmt.Errorf("store init: %w", err)
	}

	dir, err := directory.Open(ctx, st)
	if err != nil {
		return fmt.Errorf("directory init: %w", err)
	}
	led, err := ledger.Open(ctx, st)
	if err != nil {
		return fmt.Errorf("ledger init: %w", err)
	}

	var rec recognizer.Recognizer
	if cfg.Simulate {
		rec = recognizer.NewSimulated(cfg.PassRate, time.Now().UnixNano())
		log.Println("recognizer: simulated matcher (RECOGNIZER_SIMULATE=true)")
	} else {
		client := recognizer.NewClient(cfg.RecognizerURL, cfg.MatchThreshold)
		if err := client.Health(ctx); err != nil {
			log.Printf("WARNING: face service not available: %v", err)
		} else {
			log.Println("face service connected")
		}
		rec = client
	}

	m := metrics.New()
	m.RegisteredStudents.Set(float64(dir.Count()))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		status := http.StatusOK
		resp := gin.H{"status": "ok", "store": cfg.StoreBackend}
		if redisStore != nil {
			healthy := redisStore.Healthy(c.Request.Context())
			resp["redis"] = healthy
			if !healthy {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, resp)
	})

	v1 := r.Group("/v1")

	v1.POST("/students", func(c *gin.Context) {
		var req struct {
			Name       string `json:"name"`
			RollNumber string `json:"rollNumber"`
			Department string `json:"department"`
			Semester   int    `json:"semester"`
			Email      string `json:"email"`
			Phone      string `json:"phone"`
			FaceImage  string `json:"faceImage"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s, err := dir.Add(c.Request.Context(), directory.Fields{
			Name:       req.Name,
			RollNumber: req.RollNumber,
			Department: req.Department,
			Semester:   req.Semester,
			Email:      req.Email,
			Phone:      req.Phone,
			FaceImage:  req.FaceImage,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		m.RegisteredStudents.Set(float64(dir.Count()))
		c.JSON(http.StatusCreated, s)
	})

	v1.GET("/students", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"students": dir.List()})
	})

	v1.GET("/students/:id", func(c *gin.Context) {
		s, ok := dir.GetByID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	v1.PATCH("/students/:id", func(c *gin.Context) {
		var req struct {
			Name       *string `json:"name"`
			RollNumber *string `json:"rollNumber"`
			Department *string `json:"department"`
			Semester   *int    `json:"semester"`
			Email      *string `json:"email"`
			Phone      *string `json:"phone"`
			FaceImage  *string `json:"faceImage"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		err := dir.Update(c.Request.Context(), c.Param("id"), directory.Update{
			Name:       req.Name,
			RollNumber: req.RollNumber,
			Department: req.Department,
			Semester:   req.Semester,
			Email:      req.Email,
			Phone:      req.Phone,
			FaceImage:  req.FaceImage,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "updated"})
	})

	v1.DELETE("/students/:id", func(c *gin.Context) {
		if err := dir.Remove(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		m.RegisteredStudents.Set(float64(dir.Count()))
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})

	v1.GET("/students/:id/attendance", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"records": led.RecordsForStudent(c.Param("id"))})
	})

	v1.POST("/attendance/capture", func(c *gin.Context) {
		var req struct {
			Image string `json:"image"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		pool := dir.List()
		match, err := rec.Identify(c.Request.Context(), recognizer.Frame(req.Image), pool)
		if err != nil {
			if errors.Is(err, recognizer.ErrNoMatch) {
				m.RecognizerNoMatches.Inc()
				c.JSON(http.StatusNotFound, gin.H{"error": "no matching student found"})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}

		s, ok := dir.GetByID(match.StudentID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "matched student no longer registered"})
			return
		}

		now := time.Now()
		record, err := markStudent(c.Request.Context(), led, m, s, now, statusForHour(cfg, now), ledger.MethodFace)
		if err != nil {
			respondMarkError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"record": record, "similarity": match.Similarity})
	})

	v1.POST("/attendance", func(c *gin.Context) {
		var req struct {
			StudentID string `json:"studentId" binding:"required"`
			Status    string `json:"status"`
			Date      string `json:"date"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		s, ok := dir.GetByID(req.StudentID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}

		when := time.Now()
		if req.Date != "" {
			parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			when = parsed
		}
		status := ledger.Status(req.Status)
		if status == "" {
			status = ledger.StatusPresent
		}

		record, err := markStudent(c.Request.Context(), led, m, s, when, status, ledger.MethodManual)
		if err != nil {
			respondMarkError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"record": record})
	})

	v1.GET("/attendance", func(c *gin.Context) {
		date := time.Now()
		if v := c.Query("date"); v != "" {
			parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			date = parsed
		}
		c.JSON(http.StatusOK, gin.H{"records": led.RecordsForDate(date)})
	})

	v1.GET("/attendance/today", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"records": led.TodayRecords()})
	})

	v1.GET("/attendance/export", func(c *gin.Context) {
		date := time.Now()
		if v := c.Query("date"); v != "" {
			parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			date = parsed
		}
		day := date.Format("2006-01-02")
		c.Header("Content-Disposition", "attachment; filename="+export.Filename(day))
		c.Header("Content-Type", "text/csv")
		if err := export.CSV(c.Writer, led.RecordsForDate(date)); err != nil {
			log.Printf("csv export failed: %v", err)
		}
	})

	v1.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, led.ComputeStats(dir.Count()))
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// buildStore selects the persistence backend. The redis handle is
// returned separately so /healthz can ping it.
func buildStore(cfg config.App) (store.Store, *store.Redis, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "memory":
		return store.NewMemory(), nil, nil
	case "file":
		f, err := store.NewFile(cfg.DataDir)
		return f, nil, err
	case "redis":
		r := store.NewRedis(cfg.RedisAddr)
		return r, r, nil
	case "postgres":
		p, err := store.NewPostgres(cfg.DatabaseURL)
		return p, nil, err
	case "sqlite":
		s, err := store.NewSQLite(cfg.SQLitePath)
		return s, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// markStudent snapshots the student's attributes into a candidate and
// records it.
func markStudent(ctx context.Context, led *ledger.Ledger, m *metrics.Metrics, s directory.Student, when time.Time, status ledger.Status, method ledger.Method) (ledger.Record, error) {
	record, err := led.Mark(ctx, ledger.Candidate{
		StudentID:          s.ID,
		StudentName:        s.Name,
		RollNumber:         s.RollNumber,
		Department:         s.Department,
		Date:               when,
		Time:               when.Format("03:04 PM"),
		Status:             status,
		VerificationMethod: method,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateAttendance) {
			m.DuplicatesRejected.Inc()
		}
		return ledger.Record{}, err
	}
	m.MarksTotal.WithLabelValues(string(status), string(method)).Inc()
	return record, nil
}

// statusForHour applies the late window: marks inside it are late,
// everything else is present.
func statusForHour(cfg config.App, t time.Time) ledger.Status {
	if h := t.Hour(); h >= cfg.LateAfterHour && h < cfg.LateUntilHour {
		return ledger.StatusLate
	}
	return ledger.StatusPresent
}

func respondMarkError(c *gin.Context, err error) {
	if errors.Is(err, ledger.ErrDuplicateAttendance) {
		c.JSON(http.StatusConflict, gin.H{"error": "Attendance already marked for today"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
