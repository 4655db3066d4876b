package server

import (
	"log/slog"
	"net/http"
	"time"

	"task-assigner/internal/auth"
	"task-assigner/internal/config"
	"task-assigner/internal/handlers"
	"task-assigner/internal/middleware"
	"task-assigner/internal/models"
	"task-assigner/internal/tasks"
	"task-assigner/internal/users"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionName = "task_session"

// Deps are the services the HTTP layer is built on.
type Deps struct {
	DB       *gorm.DB
	Users    *users.Store
	Resolver *auth.Resolver
	Engine   *tasks.Engine
}

func NewRouter(cfg *config.Config, deps Deps, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(log))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.CredentialTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	authCtl := &handlers.AuthController{Users: deps.Users, Resolver: deps.Resolver}
	taskCtl := &handlers.TaskController{Engine: deps.Engine, Users: deps.Users}

	requireAuth := middleware.RequireAuth(deps.Resolver)
	admin := middleware.RequireRole(models.RoleAdmin)
	employee := middleware.RequireRole(models.RoleEmployee)
	manager := middleware.RequireRole(models.RoleManager)

	api := r.Group(cfg.APIPrefix)

	// AUTH
	a := api.Group("/auth")
	a.POST("/signup", authCtl.Signup)
	a.POST("/login", authCtl.Login)
	a.POST("/logout", authCtl.Logout)
	a.GET("/checkAuth", requireAuth, authCtl.CheckAuth)
	a.GET("/pending-users", requireAuth, admin, authCtl.PendingUsers)
	a.POST("/approve/:id", requireAuth, admin, authCtl.Approve)
	a.POST("/decline/:id", requireAuth, admin, authCtl.Decline)

	// TASKS
	t := api.Group("/task")
	t.Use(requireAuth)

	t.POST("/create", employee, taskCtl.Create)
	t.PUT("/update/:id", employee, taskCtl.Update)
	// admins reach the engine, which only lets the creator delete
	t.DELETE("/delete/:id",
		middleware.RequireRole(models.RoleEmployee, models.RoleAdmin),
		taskCtl.Delete,
	)

	t.POST("/assign/:id", admin, taskCtl.Assign)
	t.POST("/accept/:id", manager, taskCtl.Accept())
	t.POST("/decline/:id", manager, taskCtl.Decline())
	t.POST("/complete/:id", manager, taskCtl.Complete())

	t.GET("/logs/:id", taskCtl.Logs)
	t.GET("/all-managers", admin, taskCtl.AllManagers)
	t.GET("/manager-tasks", manager, taskCtl.ManagerTasks())
	t.GET("/employee-tasks", employee, taskCtl.EmployeeTasks())
	t.GET("/admin-tasks", admin, taskCtl.AdminTasks())

	// HEALTHCHECK
	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			log.Error("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.NoRoute(handlers.NotFound)

	return r
}
