package v1

import (
	"net/http"
	"time"

	"go-brokerage-backend/config"
	"go-brokerage-backend/internal/delivery/http/middleware"
	"go-brokerage-backend/internal/delivery/http/response"
	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/internal/usecase"
	"go-brokerage-backend/pkg/auth"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type RouterDeps struct {
	ProfileUC domain.ProfileUsecase
	AuthUC    domain.AuthUsecase
	LinkingUC domain.LinkingUsecase
	TradingUC domain.TradingUsecase
	HealthUC  usecase.HealthUsecase
	Tokens    *auth.TokenService
	Redis     *goredis.Client // nil means in-memory rate limiting
	Config    *config.Config
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middlewares
	r.Use(middleware.CORSMiddleware(deps.Config.FrontendURL)) // CORS must be first!
	r.Use(middleware.SecurityHeadersMiddleware())
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler())

	window := time.Duration(deps.Config.RateLimitWindowSeconds) * time.Second
	r.Use(middleware.RateLimit(deps.Redis, middleware.DefaultRateLimitConfig(deps.Config.RateLimitGlobalThreshold, window)))

	v1 := r.Group("/v1")

	// Health Check
	v1.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, "System operational", deps.HealthUC.Check(c.Request.Context()))
	})

	// Swagger
	v1.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Login gets its own strict limiter on top of the global one.
	login := v1.Group("")
	login.Use(middleware.RateLimit(deps.Redis, middleware.LoginRateLimitConfig(deps.Config.RateLimitLoginThreshold, window)))

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens, deps.AuthUC))
	{
		NewProfileHandler(v1, protected, deps.ProfileUC)
		NewAuthHandler(login, protected, deps.AuthUC)
		NewBrokerageHandler(protected, deps.LinkingUC, deps.TradingUC)
	}

	return r
}
