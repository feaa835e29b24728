// Package service wires the cleaning engine to its collaborators: file I/O,
// the domain classifier, the AI advisor and run history. The CLI and the HTTP
// server both clean through it.
package service

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/datacleaner/internal/clean"
	"github.com/sells-group/datacleaner/internal/domain"
	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/recommend"
	"github.com/sells-group/datacleaner/internal/store"
	"github.com/sells-group/datacleaner/internal/tabular"
)

// Advisor produces AI recommendations. *recommend.Advisor implements it.
type Advisor interface {
	Recommend(ctx context.Context, ds *model.Dataset) recommend.Payload
}

// Request describes one cleaning job.
type Request struct {
	// InputPath is the CSV or XLSX file to clean.
	InputPath string
	// Options are the caller's explicit settings; they win over everything.
	Options model.PartialConfig
	// UseAI asks the advisor for suggestions before merging.
	UseAI bool
	// OutputPath is where the cleaned snapshot goes. Empty means
	// cleaned_<name> next to the input.
	OutputPath string
}

// Result is a successful cleaning job.
type Result struct {
	RunID          string                `json:"run_id,omitempty"`
	OutputPath     string                `json:"output_path"`
	Config         model.CleaningConfig  `json:"config"`
	Report         *model.CleaningReport `json:"report"`
	Classification domain.Result         `json:"classification"`
	Recommendation *recommend.Payload    `json:"recommendation,omitempty"`
	Dataset        *model.Dataset        `json:"-"`
}

// Service runs cleaning jobs. Store and Advisor are optional.
type Service struct {
	Cleaner    *clean.Cleaner
	Classifier *domain.Classifier
	Advisor    Advisor
	Store      store.Store
}

// Load reads a dataset and classifies it.
func (s *Service) Load(ctx context.Context, path string) (*model.Dataset, domain.Result, error) {
	ds, err := tabular.ReadFile(ctx, path)
	if err != nil {
		return nil, domain.Result{}, err
	}
	return ds, s.Classifier.Classify(ds), nil
}

// Clean loads, configures and cleans one file, writes the cleaned snapshot
// and records the run. Cleaning failures are returned as *clean.RunFailure
// after being persisted.
func (s *Service) Clean(ctx context.Context, req Request) (*Result, error) {
	ds, cls, err := s.Load(ctx, req.InputPath)
	if err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("file", filepath.Base(req.InputPath)))

	res := &Result{Classification: cls}
	if req.UseAI {
		if s.Advisor == nil {
			log.Warn("service: AI requested but no advisor configured")
		} else {
			p := s.Advisor.Recommend(ctx, ds)
			res.Recommendation = &p
		}
	}

	run, err := s.createRun(ctx, req, ds)
	if err != nil {
		return nil, err
	}
	if run != nil {
		res.RunID = run.ID
		log = log.With(zap.String("run_id", run.ID))
	}

	cfg, err := recommend.Merge(ds, req.Options, res.Recommendation, cls.Suggested)
	if err != nil {
		return nil, s.fail(ctx, res.RunID, &clean.RunFailure{State: model.StateProfiling, Err: err})
	}
	res.Config = cfg

	cleaned, report, err := s.Cleaner.Run(ds, cfg, clean.RunOptions{DomainName: cls.Domain})
	if err != nil {
		var f *clean.RunFailure
		if errors.As(err, &f) {
			return nil, s.fail(ctx, res.RunID, f)
		}
		return nil, err
	}
	res.Dataset, res.Report = cleaned, report

	res.OutputPath = req.OutputPath
	if res.OutputPath == "" {
		res.OutputPath = filepath.Join(filepath.Dir(req.InputPath), tabular.CleanedName(req.InputPath))
	}
	if err := tabular.WriteFile(res.OutputPath, cleaned); err != nil {
		return nil, err
	}

	if s.Store != nil && res.RunID != "" {
		if err := s.Store.CompleteRun(ctx, res.RunID, report, filepath.Base(res.OutputPath)); err != nil {
			return nil, eris.Wrap(err, "service: record completed run")
		}
	}
	log.Info("service: cleaned",
		zap.String("output", res.OutputPath),
		zap.Int("final_rows", report.FinalRows),
	)
	return res, nil
}

func (s *Service) createRun(ctx context.Context, req Request, ds *model.Dataset) (*model.Run, error) {
	if s.Store == nil {
		return nil, nil
	}
	run, err := s.Store.CreateRun(ctx, model.RunSource{
		FileName: filepath.Base(req.InputPath),
		Rows:     ds.NumRows(),
		Columns:  ds.NumColumns(),
		Options:  req.Options.Resolve(),
		UsedAI:   req.UseAI,
	})
	return run, eris.Wrap(err, "service: create run")
}

// fail persists the failure and returns it.
func (s *Service) fail(ctx context.Context, runID string, f *clean.RunFailure) error {
	if s.Store != nil && runID != "" {
		if err := s.Store.FailRun(ctx, runID, f.Record()); err != nil {
			zap.L().Error("service: record failed run", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return f
}
