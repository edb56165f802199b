package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

type healthUsecase struct {
	pool *pgxpool.Pool
	demo bool
}

func NewHealthUsecase(pool *pgxpool.Pool, demo bool) HealthUsecase {
	return &healthUsecase{pool: pool, demo: demo}
}

func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	status := map[string]string{
		"status":   "ok",
		"database": "ok",
	}
	if u.demo {
		status["brokerage"] = "demo"
	} else {
		status["brokerage"] = "live"
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := u.pool.Ping(pingCtx); err != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
	}
	return status
}
