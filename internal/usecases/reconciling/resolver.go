package reconciling

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/pkg/retry"
)

// TimezoneDirectory é a parte do diretório de contas usada pelo resolver
type TimezoneDirectory interface {
	GetTimezones(ctx context.Context, accountNames []string) (map[string]string, error)
}

// Resolver traduz nomes de conta em fusos IANA com cache por execução.
// Cada nome é consultado no diretório no máximo uma vez; falhas e nomes
// sem fuso ficam registrados como ausentes.
type Resolver struct {
	directory TimezoneDirectory
	policy    retry.Policy

	mu    sync.Mutex
	cache map[string]*string
}

func NewResolver(directory TimezoneDirectory, policy retry.Policy) *Resolver {
	return &Resolver{
		directory: directory,
		policy:    policy,
		cache:     make(map[string]*string),
	}
}

// Resolve devolve o fuso da conta e se ele foi encontrado
func (r *Resolver) Resolve(ctx context.Context, accountName string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if tz, found := r.cache[accountName]; found {
		return deref(tz)
	}

	if accountName == "" {
		r.cache[accountName] = nil
		return "", false
	}

	r.lookup(ctx, []string{accountName})

	return deref(r.cache[accountName])
}

// Warm consulta de uma vez todos os nomes ainda fora do cache
func (r *Resolver) Warm(ctx context.Context, accountNames []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{}, len(accountNames))
	var missing []string
	for _, name := range accountNames {
		if name == "" {
			continue
		}
		if _, cached := r.cache[name]; cached {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		missing = append(missing, name)
	}

	if len(missing) == 0 {
		return
	}

	r.lookup(ctx, missing)
}

// Size retorna quantos nomes já estão no cache
func (r *Resolver) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// lookup precisa ser chamado com o mutex travado
func (r *Resolver) lookup(ctx context.Context, names []string) {
	var timezones map[string]string

	err := retry.Do(ctx, r.policy, "timezone_directory", func(ctx context.Context) error {
		var err error
		timezones, err = r.directory.GetTimezones(ctx, names)
		return err
	})
	if err != nil {
		logrus.WithError(err).
			WithField("accounts", len(names)).
			Error("Falha ao consultar o diretório de fusos, contas seguirão pelo fallback")
		for _, name := range names {
			r.cache[name] = nil
		}
		return
	}

	for _, name := range names {
		tz, found := timezones[name]
		if !found || tz == "" {
			logrus.WithField("account_name", name).Warn("Conta sem fuso no diretório, usando fallback")
			r.cache[name] = nil
			continue
		}

		if _, err := time.LoadLocation(tz); err != nil {
			logrus.WithField("account_name", name).Warnf("Fuso %q inválido no diretório, usando fallback: %v", tz, err)
			r.cache[name] = nil
			continue
		}

		resolved := tz
		r.cache[name] = &resolved
	}
}

func deref(tz *string) (string, bool) {
	if tz == nil {
		return "", false
	}
	return *tz, true
}
