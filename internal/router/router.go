// Package router wires the HTTP surface. Route patterns carry the method
// (Go 1.22 mux), and every tenant route goes through BearerAuth so that a
// tenancy scope is installed before any handler runs.
package router

import (
	"net/http"

	"github.com/kudosworks/backend/internal/auth"
	"github.com/kudosworks/backend/internal/handlers"
	"github.com/kudosworks/backend/internal/middleware"
	"github.com/kudosworks/backend/internal/models"
)

type Handlers struct {
	Auth        *auth.Handler
	Recognition *handlers.RecognitionHandler
	Budget      *handlers.BudgetHandler
	Redemption  *handlers.RedemptionHandler
	Points      *handlers.PointsHandler
	Platform    *handlers.PlatformHandler
	Users       *handlers.UserHandler
	History     *handlers.TransactionHandler
	Account     *handlers.AccountHandler
}

// New returns an http.Handler serving the API under /api/v1.
func New(authSvc auth.Service, h Handlers) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"

	authed := middleware.BearerAuth(authSvc)
	approver := middleware.RequireRole(models.Role.CanApprove)
	admin := middleware.RequireRole(models.Role.CanManageBudgets)
	operator := middleware.RequireRole(models.Role.CanOperatePlatform)

	route := func(pattern string, handler http.HandlerFunc, wrap ...func(http.Handler) http.Handler) {
		var hh http.Handler = handler
		for i := len(wrap) - 1; i >= 0; i-- {
			hh = wrap[i](hh)
		}
		mux.Handle(pattern, authed(hh))
	}

	// Login is the only unauthenticated route.
	mux.HandleFunc("POST "+base+"/auth/login", h.Auth.Login)

	// Recognitions
	route("POST "+base+"/recognitions", h.Recognition.Create)
	route("POST "+base+"/recognitions/direct", h.Recognition.GiveDirect, approver)
	route("POST "+base+"/recognitions/{id}/approve", h.Recognition.Approve, approver)
	route("POST "+base+"/recognitions/{id}/decline", h.Recognition.Decline, approver)
	route("GET "+base+"/recognitions/pending", h.Recognition.ListPending, approver)
	route("GET "+base+"/recognitions/{id}", h.Recognition.Get)

	// Budgets
	route("POST "+base+"/budgets/pools", h.Budget.CreatePool, admin)
	route("POST "+base+"/budgets/pools/{id}/allocate", h.Budget.AllocatePool, admin)
	route("GET "+base+"/budgets/pools/{id}/departments", h.Budget.Departments)
	route("POST "+base+"/budgets/leads/{id}/allocate", h.Budget.AllocateLead, admin)

	// Rewards and redemptions
	route("GET "+base+"/rewards", h.Redemption.ListRewards)
	route("POST "+base+"/rewards", h.Redemption.CreateReward, admin)
	route("POST "+base+"/redemptions", h.Redemption.Redeem)
	route("GET "+base+"/redemptions", h.Redemption.ListMine)
	route("GET "+base+"/redemptions/{id}", h.Redemption.Get)

	// Points
	route("GET "+base+"/account/me", h.Account.Me)
	route("GET "+base+"/points/balance", h.Points.Balance)
	route("GET "+base+"/points/history", h.Points.History)

	// Users (tenant admin)
	route("POST "+base+"/users", h.Users.Create, admin)
	route("GET "+base+"/users", h.Users.List, admin)
	route("GET "+base+"/users/{id}", h.Users.Get)

	// Audit history
	route("GET "+base+"/transactions", h.History.List, admin)

	// Platform operator
	route("POST "+base+"/platform/tenants", h.Platform.Onboard, operator)
	route("GET "+base+"/platform/tenants", h.Platform.ListTenants, operator)
	route("GET "+base+"/platform/tenants/{id}", h.Platform.GetTenant, operator)
	route("POST "+base+"/platform/tenants/{id}/load", h.Platform.Load, operator)
	route("POST "+base+"/platform/tenants/{id}/suspend", h.Platform.Suspend, operator)
	route("POST "+base+"/platform/tenants/{id}/resume", h.Platform.Resume, operator)

	return mux
}
