package main

import (
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kudosworks/backend/internal/auth"
	"github.com/kudosworks/backend/internal/cache"
	"github.com/kudosworks/backend/internal/handlers"
	"github.com/kudosworks/backend/internal/ledger"
	"github.com/kudosworks/backend/internal/repository"
	"github.com/kudosworks/backend/internal/router"
	"github.com/kudosworks/backend/internal/services"
)

// api groups everything main needs after wiring: the HTTP handler plus the
// redemption service the fulfillment worker calls back into.
type api struct {
	Handler     http.Handler
	Redemptions *services.RedemptionService
}

// buildAPI constructs repositories, services, and handlers over the shared
// pool. The enqueue func is main's closure over the River client so that
// fulfillment jobs are inserted in the same transaction as the redemption.
func buildAPI(
	pool *pgxpool.Pool,
	balanceCache cache.BalanceCache,
	notifier services.Notifier,
	enqueue services.EnqueueFulfillTxFunc,
	logger *slog.Logger,
) api {
	tenantRepo := repository.NewTenantRepo(pool)
	userRepo := repository.NewUserRepo(pool)
	budgetRepo := repository.NewBudgetRepo(pool)
	recognitionRepo := repository.NewRecognitionRepo(pool)
	redemptionRepo := repository.NewRedemptionRepo(pool)
	rewardRepo := repository.NewRewardRepo(pool)
	transactionRepo := repository.NewTransactionRepo(pool)
	ledgerRepo := ledger.NewRepository(pool)

	authSvc := auth.NewService(userRepo)
	platformSvc := services.NewPlatformService(tenantRepo, userRepo, logger)
	budgetSvc := services.NewBudgetService(pool, budgetRepo, tenantRepo, userRepo, ledgerRepo, transactionRepo, balanceCache, logger)
	recognitionSvc := services.NewRecognitionService(pool, recognitionRepo, budgetRepo, tenantRepo, userRepo, ledgerRepo, transactionRepo, balanceCache, notifier, logger)
	redemptionSvc := services.NewRedemptionService(pool, redemptionRepo, rewardRepo, tenantRepo, userRepo, ledgerRepo, transactionRepo, balanceCache, notifier, enqueue, logger)
	pointsSvc := services.NewPointsService(ledgerRepo, balanceCache, logger)

	h := router.Handlers{
		Auth:        auth.NewHandler(authSvc, logger),
		Recognition: &handlers.RecognitionHandler{Svc: recognitionSvc, Logger: logger},
		Budget:      &handlers.BudgetHandler{Svc: budgetSvc, Logger: logger},
		Redemption:  &handlers.RedemptionHandler{Svc: redemptionSvc, Rewards: rewardRepo, Logger: logger},
		Points:      &handlers.PointsHandler{Svc: pointsSvc, Logger: logger},
		Platform:    &handlers.PlatformHandler{Svc: platformSvc, Budget: budgetSvc, Logger: logger},
		Users:       &handlers.UserHandler{Repo: userRepo, Logger: logger},
		History:     &handlers.TransactionHandler{Repo: transactionRepo, Logger: logger},
		Account:     &handlers.AccountHandler{Users: userRepo, Points: pointsSvc, Logger: logger},
	}

	return api{
		Handler:     router.New(authSvc, h),
		Redemptions: redemptionSvc,
	}
}
