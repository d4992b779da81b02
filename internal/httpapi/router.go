package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campuslibrary/internal/admin"
	"campuslibrary/internal/auth"
	"campuslibrary/internal/calendar"
	"campuslibrary/internal/httpmiddleware"
	"campuslibrary/internal/ledger"
	"campuslibrary/internal/reminder"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps is everything the router serves.
type Deps struct {
	Attendance *ledger.AttendanceLedger
	Lending    *ledger.LendingLedger
	Reports    *ledger.Reports
	Admins     *admin.Service
	Decoder    auth.Decoder
	Hub        *Hub
	Clock      *calendar.Clock
	// Reminders enables POST /admin/reminders/run when set.
	Reminders *reminder.Job

	SigningKey      string
	Issuer          string
	DefaultLoanDays int

	Limiter httpmiddleware.Limiter
	Health  map[string]HealthCheck
}

type server struct {
	Deps
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	s := &server{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	api := r.Group("/")
	if d.Limiter != nil {
		api.Use(httpmiddleware.RateLimit(d.Limiter))
	}
	api.POST("/attendance", s.recordAttendance)
	api.POST("/borrow", s.borrow)
	api.POST("/borrowed", s.borrowed)
	api.POST("/returnbook", s.returnBook)
	api.POST("/admin/login", s.adminLogin)

	admins := r.Group("/admin", auth.AdminAuth(d.SigningKey, d.Issuer))
	admins.GET("/top-attendance", s.topAttendance)
	admins.GET("/most-borrowed-books", s.mostBorrowed)
	admins.GET("/today-attendance", s.todayAttendance)
	admins.GET("/today-attendance/export", s.exportTodayAttendance)
	if d.Reminders != nil {
		admins.POST("/reminders/run", s.runReminders)
	}

	if d.Hub != nil {
		r.GET("/ws/attendance", auth.AdminAuth(d.SigningKey, d.Issuer), s.attendanceFeed)
	}
	return r
}

func (s *server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Health {
		healthy := check(c.Request.Context())
		body[name] = healthy
		if !healthy {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
