package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"reportd/internal/domain"
	"reportd/internal/infra"
	"reportd/internal/notify"
	"reportd/internal/observability"
	"reportd/internal/report"
	"reportd/internal/sqlinline"
	"reportd/internal/storage"
)

// claimedJob is the slice of the jobs row the pipeline needs.
type claimedJob struct {
	ID        string
	CompanyID int64
	Locale    string
}

type jobWorker struct {
	ctx           context.Context
	runner        *infra.SQLRunner
	logger        infra.Logger
	builder       *report.Builder
	store         *storage.FileStore
	observer      *observability.Observer
	claimInterval time.Duration
}

var errNoJobAvailable = errors.New("no job available")

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	observer := observability.NewNoop()
	if cfg.OTelEnabled {
		observer = observability.FromGlobal()
	}

	worker := &jobWorker{
		ctx:           ctx,
		runner:        infra.NewSQLRunner(pool, logger),
		logger:        logger,
		builder:       report.NewBuilder(),
		store:         fileStore,
		observer:      observer,
		claimInterval: cfg.ClaimInterval,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		j, err := w.claimJob()
		if err != nil {
			if !errors.Is(err, errNoJobAvailable) {
				w.logger.Error().Err(err).Msg("worker: failed to claim job")
			}
			select {
			case <-w.ctx.Done():
				return w.ctx.Err()
			case <-time.After(w.claimInterval):
			}
			continue
		}

		w.handleJob(j)
	}
}

func (w *jobWorker) claimJob() (claimedJob, error) {
	row := w.runner.QueryRow(w.ctx, sqlinline.QClaimJob)
	var j claimedJob
	if err := row.Scan(&j.ID, &j.CompanyID, &j.Locale); err != nil {
		if infra.IsNoRows(err) {
			return claimedJob{}, errNoJobAvailable
		}
		return claimedJob{}, err
	}
	return j, nil
}

func (w *jobWorker) handleJob(j claimedJob) {
	w.logger.Info().Str("job_id", j.ID).Int64("company_id", j.CompanyID).Msg("worker: picked job")
	start := time.Now()
	ctx, span := w.observer.StartSpan(w.ctx, "worker.generate_report", j.ID)

	err := w.generate(ctx, j)
	w.observer.EndSpan(span, err)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: job failed")
		w.failJob(j, err)
		w.observer.JobFinished(ctx, true, time.Since(start))
		return
	}
	w.observer.JobFinished(ctx, false, time.Since(start))
	w.logger.Info().Str("job_id", j.ID).Dur("elapsed", time.Since(start)).Msg("worker: job completed")
}

// generate runs the pipeline for one claimed job. The claim itself already
// moved the row to processing/15, so the first publish announces that stage.
func (w *jobWorker) generate(ctx context.Context, j claimedJob) error {
	w.publish(ctx, j, domain.StageProcessing, "", "")

	company, err := w.loadCompany(ctx, j.CompanyID)
	if err != nil {
		return fmt.Errorf("load company: %w", err)
	}

	body, err := w.builder.Render(company)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := w.advance(ctx, j, domain.StageRendering); err != nil {
		return err
	}

	financials, err := w.builder.Financials(company)
	if err != nil {
		return fmt.Errorf("build financials: %w", err)
	}
	bundle, err := w.builder.Compile(body, financials)
	if err != nil {
		return fmt.Errorf("compile bundle: %w", err)
	}
	if err := w.advance(ctx, j, domain.StageCompiling); err != nil {
		return err
	}

	if err := w.advance(ctx, j, domain.StageUploading); err != nil {
		return err
	}
	key, err := w.store.Write(ctx, "reports/"+j.ID+"/bundle.zip", bundle)
	if err != nil {
		return fmt.Errorf("store bundle: %w", err)
	}

	if _, err := w.runner.Exec(ctx, sqlinline.QCompleteJob, j.ID, key); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	w.observer.StageTransition(ctx, string(domain.StageCompleted))
	w.publish(ctx, j, domain.StageCompleted, "", "/v1/reports/"+j.ID+"/download")
	return nil
}

func (w *jobWorker) loadCompany(ctx context.Context, id int64) (*domain.Company, error) {
	row := w.runner.QueryRow(ctx, sqlinline.QGetCompanyForReport, id)
	var company domain.Company
	var metricsJSON []byte
	if err := row.Scan(&company.ID, &company.Name, &company.Sector, &company.Summary, &metricsJSON, &company.UpdatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("company %d not found", id)
		}
		return nil, err
	}
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &company.Metrics); err != nil {
			return nil, fmt.Errorf("decode company metrics: %w", err)
		}
	}
	return &company, nil
}

// advance persists the stage transition and publishes it.
func (w *jobWorker) advance(ctx context.Context, j claimedJob, stage domain.Stage) error {
	if _, err := w.runner.Exec(ctx, sqlinline.QAdvanceStage, j.ID, string(stage), domain.StageProgress[stage]); err != nil {
		return fmt.Errorf("advance to %s: %w", stage, err)
	}
	w.observer.StageTransition(ctx, string(stage))
	w.publish(ctx, j, stage, "", "")
	return nil
}

func (w *jobWorker) failJob(j claimedJob, cause error) {
	// Use a fresh context so a shutdown signal cannot strand the row in a
	// non-terminal stage.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := cause.Error()
	if _, err := w.runner.Exec(ctx, sqlinline.QFailJob, j.ID, msg); err != nil {
		w.logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: mark failed errored")
	}
	w.observer.StageTransition(ctx, string(domain.StageFailed))
	w.publish(ctx, j, domain.StageFailed, msg, "")
}

// publish pushes one status event through pg_notify. Delivery is best
// effort; pollers read the row directly.
func (w *jobWorker) publish(ctx context.Context, j claimedJob, stage domain.Stage, errMsg, resultRef string) {
	ev := notify.Event{
		JobID:           j.ID,
		Status:          string(stage),
		Progress:        domain.StageProgress[stage],
		StatusDisplay:   stage.Display(j.Locale),
		ErrorMessage:    errMsg,
		ResultReference: resultRef,
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", j.ID).Msg("worker: encode status event failed")
		return
	}
	if _, err := w.runner.Exec(ctx, sqlinline.QNotifyStatus, string(payload)); err != nil {
		w.logger.Warn().Err(err).Str("job_id", j.ID).Msg("worker: publish status failed")
	}
}
