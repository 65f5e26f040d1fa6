package handler

import (
	"net/http"

	"github.com/vfg2006/spend-reconciler/infrastructure/repository"
	"github.com/vfg2006/spend-reconciler/internal/api/handler/router"
	"github.com/vfg2006/spend-reconciler/pkg/middleware"
)

func Healthcheck(db Pinger) []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(db),
		},
	}
}

func Runs(controller RunController, runs repository.RunRepository) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/runs",
			Method:      http.MethodPost,
			Handler:     TriggerRun(controller),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/runs",
			Method:      http.MethodGet,
			Handler:     ListRuns(runs),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/runs/status",
			Method:      http.MethodGet,
			Handler:     GetRunStatus(controller),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}
