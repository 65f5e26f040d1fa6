package handler

import (
	"net/http"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/infrastructure/repository"
	"github.com/vfg2006/spend-reconciler/internal/domain"
	"github.com/vfg2006/spend-reconciler/pkg/apiErrors"
	"github.com/vfg2006/spend-reconciler/pkg/log"
	"github.com/vfg2006/spend-reconciler/pkg/middleware"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// RunController dispara e acompanha reconciliações deste processo
type RunController interface {
	TriggerManualSync() bool
	GetStatus() map[string]any
}

// TriggerRun inicia uma reconciliação em segundo plano
func TriggerRun(controller RunController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.ForContext(r.Context())
		if claims, ok := r.Context().Value(middleware.ContextKeyUser).(*domain.Claims); ok {
			logger = logger.WithField("user", claims.Subject)
		}
		logger.Info("INIT - TriggerRun")

		if !controller.TriggerManualSync() {
			apiErrors.WriteError(w, apiErrors.ErrRunInProgress, "Já existe uma reconciliação em andamento", nil)
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]any{
			"message": "Reconciliação iniciada com sucesso",
		})
	}
}

// GetRunStatus retorna o status do agendador e da última execução
func GetRunStatus(controller RunController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controller.GetStatus())
	}
}

// ListRuns retorna as últimas execuções registradas
func ListRuns(runs repository.RunRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRunsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				apiErrors.WriteError(w, apiErrors.ErrInvalidFormat, "limit deve ser um inteiro positivo", nil)
				return
			}
			limit = min(parsed, maxRunsLimit)
		}

		reports, err := runs.ListRecent(r.Context(), limit)
		if err != nil {
			log.ForContext(r.Context()).WithError(err).Error("Erro ao listar execuções")
			apiErrors.WriteError(w, apiErrors.ErrDatabaseOperation, "Erro ao listar execuções", nil)
			return
		}

		if reports == nil {
			reports = []*domain.RunReport{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"runs":  reports,
			"limit": limit,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.WithError(err).Error("Erro ao enviar resposta")
	}
}
