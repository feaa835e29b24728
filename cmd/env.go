package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/datacleaner/internal/clean"
	"github.com/sells-group/datacleaner/internal/domain"
	"github.com/sells-group/datacleaner/internal/recommend"
	"github.com/sells-group/datacleaner/internal/service"
	"github.com/sells-group/datacleaner/internal/store"
	anthropicpkg "github.com/sells-group/datacleaner/pkg/anthropic"
)

func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return store.NewSQLite(cfg.Store.DatabaseURL)
	}
}

// openStore opens and migrates the run store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initClassifier() (*domain.Classifier, error) {
	var (
		rules *domain.Rules
		err   error
	)
	if cfg.Cleaning.DomainRulesPath != "" {
		rules, err = domain.LoadRules(cfg.Cleaning.DomainRulesPath)
	} else {
		rules, err = domain.DefaultRules()
	}
	if err != nil {
		return nil, eris.Wrap(err, "load domain rules")
	}
	return domain.NewClassifier(rules, cfg.Cleaning.DomainMinMatches), nil
}

// initAdvisor returns nil when no API key is configured.
func initAdvisor() *recommend.Advisor {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	return recommend.NewAdvisor(anthropicpkg.NewClient(cfg.Anthropic.Key), recommend.AdvisorConfig{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		Timeout:           cfg.Anthropic.Timeout(),
		RequestsPerMinute: cfg.Anthropic.RequestsPerMinute,
		Retry:             cfg.Resilience.Policy(),
		Breaker:           cfg.Resilience.Breaker(),
	})
}

// initService builds the cleaning service. Run history is opened only when
// withStore is set; callers must Close the returned store if non-nil.
func initService(ctx context.Context, withStore bool) (*service.Service, error) {
	classifier, err := initClassifier()
	if err != nil {
		return nil, err
	}
	svc := &service.Service{
		Cleaner:    clean.New(),
		Classifier: classifier,
	}
	if advisor := initAdvisor(); advisor != nil {
		svc.Advisor = advisor
	}
	if withStore {
		st, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		svc.Store = st
	}
	zap.L().Debug("service initialized",
		zap.Bool("advisor", svc.Advisor != nil),
		zap.Bool("store", svc.Store != nil),
	)
	return svc, nil
}

func closeService(svc *service.Service) {
	if svc != nil && svc.Store != nil {
		_ = svc.Store.Close()
	}
}
