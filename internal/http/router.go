package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"smmart/internal/accounts"
	"smmart/internal/auth"
	"smmart/internal/http/handlers"
	"smmart/internal/logger"
	"smmart/internal/payment"
	"smmart/internal/rbac"
	"smmart/internal/subscription"
)

// Deps are the services the routes are built from.
type Deps struct {
	DB            *gorm.DB
	Log           zerolog.Logger
	Tokens        *auth.Tokens
	Denylist      auth.Denylist
	Accounts      *accounts.Manager
	Subscriptions *subscription.Service
	Payments      *payment.Service
}

func NewRouter(d Deps) *gin.Engine {
	handlers.RegisterValidation()

	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestID(), logger.Middleware(d.Log))

	db := d.DB
	chk := rbac.Checker{DB: db}
	authMW := auth.JWT(db, d.Tokens, d.Denylist, chk)

	// Public routes
	r.GET("/health", handlers.Health(db))
	r.GET("/packages", handlers.ListPackages(d.Subscriptions))
	r.POST("/user/", handlers.RegisterHandler(d.Accounts))
	r.POST("/token/", handlers.LoginHandler(d.Accounts, d.Tokens))

	authed := r.Group("/", authMW)
	{
		authed.POST("/token/logout", handlers.LogoutHandler(d.Denylist))
		authed.GET("/roles", handlers.ListRoles(db))

		// Own profile
		me := authed.Group("/user/me/", auth.Require(rbac.ProfileManage))
		me.GET("", handlers.MeHandler(db))
		me.PUT("", handlers.UpdateMeHandler(db, d.Accounts, false))
		me.PATCH("", handlers.UpdateMeHandler(db, d.Accounts, true))

		// Topics
		topics := authed.Group("/user/topics", auth.Require(rbac.TopicsManage))
		topics.GET("/", handlers.ListTopics(db))
		topics.POST("/", handlers.CreateTopic(db))
		topics.GET("/:id", handlers.GetTopic(db))
		topics.PUT("/:id", handlers.UpdateTopic(db, false))
		topics.PATCH("/:id", handlers.UpdateTopic(db, true))
		topics.DELETE("/:id", handlers.DeleteTopic(db))

		// Payments
		authed.POST("/payment/confirm", auth.Require(rbac.PaymentsCreate), handlers.ConfirmPayment(d.Payments))
	}

	admin := r.Group("/admin", authMW)
	{
		// Admin self-management
		self := admin.Group("/user/", auth.Require(rbac.UsersManage))
		self.GET("", handlers.MeHandler(db))
		self.PUT("", handlers.UpdateMeHandler(db, d.Accounts, false))
		self.PATCH("", handlers.UpdateMeHandler(db, d.Accounts, true))
		self.DELETE("", handlers.DeleteMeHandler(db, d.Accounts))

		// Organization
		org := admin.Group("/organization", auth.Require(rbac.OrganizationManage))
		org.GET("", handlers.GetOrganization(db))
		org.PUT("", handlers.UpdateOrganization(db, false))
		org.PATCH("", handlers.UpdateOrganization(db, true))
		org.DELETE("", handlers.DeleteOrganization(db))

		// Packages
		pkgs := admin.Group("", auth.Require(rbac.PackagesManage))
		pkgs.GET("/get/package", handlers.CurrentPackage(d.Subscriptions))
		pkgs.PUT("/assign/package", handlers.AssignPackage(d.Subscriptions))
		pkgs.GET("/package/history", handlers.PackageHistory(d.Subscriptions))

		// Users of the organization
		users := admin.Group("/users", auth.Require(rbac.UsersManage))
		users.GET("/", handlers.ListUsers(db))
		users.POST("/", handlers.CreateUser(db, d.Accounts, d.Subscriptions))
		users.GET("/:id", handlers.GetUser(db))
		users.PUT("/:id", handlers.UpdateUser(db, d.Accounts, false))
		users.PATCH("/:id", handlers.UpdateUser(db, d.Accounts, true))
		users.DELETE("/:id", handlers.DeleteUser(db, d.Accounts))

		// Audit Trail
		admin.GET("/audit", auth.Require(rbac.AuditRead), handlers.ListAudit(db))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return r
}
