// Package pipeline runs one sales load end to end: verify the inputs, load
// them, cleanse and join, persist in a single transaction, and report.
// Phases run sequentially on the caller's goroutine; the first failure stops
// the run and is returned as an *Error carrying its Kind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"salesetl/internal/config"
	"salesetl/internal/datasource"
	"salesetl/internal/datasource/file"
	"salesetl/internal/domain"
	"salesetl/internal/logging"
	"salesetl/internal/metrics"
	csvparser "salesetl/internal/parser/csv"
	"salesetl/internal/parser/xlsx"
	"salesetl/internal/report"
	"salesetl/internal/storage"
	"salesetl/internal/transformer"
)

// Phase names, used in logs, metrics labels and Error.Phase.
const (
	PhaseVerify  = "verify"
	PhaseLoad    = "load"
	PhaseCleanse = "cleanse"
	PhasePersist = "persist"
	PhaseReport  = "report"
)

// Test seams; production opens backends through the storage registry and
// reads inputs from the local disk.
var (
	newRepositoryFn = storage.New
	openSource      = func(path string) datasource.Source { return file.NewLocal(path) }
)

// Result describes a completed run.
type Result struct {
	SalesLoaded    int
	ClientsLoaded  int
	DroppedInvalid int
	Duplicates     int
	Join           transformer.JoinStats
	Inserted       int64
	Summary        report.Summary
}

// Run executes every phase against cfg and writes the report to out.
// cfg is expected to be validated. The logger is taken from ctx.
func Run(ctx context.Context, cfg config.Config, out io.Writer) (Result, error) {
	var (
		res     Result
		sales   []domain.Sale
		clients []domain.Client
		joined  []domain.JoinedSale
	)
	log := logging.FromContext(ctx)
	start := time.Now()

	policy, err := transformer.ParseUnmatchedPolicy(cfg.UnmatchedPolicy)
	if err != nil {
		return res, ConfigError(err)
	}

	steps := []struct {
		name string
		kind Kind
		fn   func(context.Context) error
	}{
		{PhaseVerify, KindMissingInput, func(ctx context.Context) error {
			return verify(ctx, cfg)
		}},
		{PhaseLoad, KindLoad, func(ctx context.Context) (err error) {
			sales, clients, err = load(ctx, cfg)
			res.SalesLoaded, res.ClientsLoaded = len(sales), len(clients)
			return err
		}},
		{PhaseCleanse, KindTransform, func(ctx context.Context) (err error) {
			joined, err = cleanse(ctx, cfg.Job, sales, clients, policy, &res)
			return err
		}},
		{PhasePersist, KindDatabase, func(ctx context.Context) (err error) {
			res.Inserted, err = persist(ctx, cfg, joined)
			return err
		}},
		{PhaseReport, KindUnknown, func(ctx context.Context) error {
			res.Summary = report.Summarize(joined)
			return report.Render(out, res.Summary, report.Options{Currency: cfg.Report.Currency})
		}},
	}

	for _, st := range steps {
		if err := ctx.Err(); err != nil {
			return res, wrap(st.kind, st.name, err)
		}
		t0 := time.Now()
		log.Info().Str("phase", st.name).Msg("phase started")
		err := st.fn(ctx)
		metrics.RecordPhase(cfg.Job, st.name, err, time.Since(t0))
		if err != nil {
			log.Error().Err(err).Str("phase", st.name).Dur("elapsed", time.Since(t0)).Msg("phase failed")
			return res, wrap(st.kind, st.name, err)
		}
		log.Info().Str("phase", st.name).Dur("elapsed", time.Since(t0).Truncate(time.Millisecond)).Msg("phase done")
	}

	log.Info().
		Int("sales", res.SalesLoaded).
		Int("dropped_invalid_amount", res.DroppedInvalid).
		Int("unmatched", res.Join.Unmatched).
		Int64("inserted", res.Inserted).
		Dur("elapsed", time.Since(start).Truncate(time.Millisecond)).
		Msg("run completed")
	return res, nil
}

func verify(ctx context.Context, cfg config.Config) error {
	if err := file.Verify(cfg.CSVPath, cfg.ExcelPath); err != nil {
		return err
	}
	log := logging.FromContext(ctx)
	for _, p := range []string{cfg.CSVPath, cfg.ExcelPath} {
		sum, err := file.Digest(ctx, p)
		if err != nil {
			return err
		}
		log.Info().Str("path", p).Str("xxh3", fmt.Sprintf("%016x", sum)).Msg("input found")
	}
	return nil
}

func load(ctx context.Context, cfg config.Config) ([]domain.Sale, []domain.Client, error) {
	log := logging.FromContext(ctx)

	rc, err := openSource(cfg.CSVPath).Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	opt := csvparser.Options{HeaderMap: cfg.CSV.HeaderMap, DateLayouts: cfg.CSV.DateLayouts}
	if d := []rune(cfg.CSV.Delimiter); len(d) == 1 {
		opt.Comma = d[0]
	}
	sales, err := csvparser.NewParser(opt).ParseSales(rc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.CSVPath, err)
	}
	metrics.RecordRow(cfg.Job, metrics.KindLoadedSales, int64(len(sales)))
	log.Info().Int("rows", len(sales)).Str("path", cfg.CSVPath).Msg("sales loaded")

	xr, err := openSource(cfg.ExcelPath).Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer xr.Close()

	clients, err := xlsx.ParseClients(xr, cfg.ClientsSheet, cfg.CSV.HeaderMap)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.ExcelPath, err)
	}
	metrics.RecordRow(cfg.Job, metrics.KindLoadedClients, int64(len(clients)))
	log.Info().Int("rows", len(clients)).Str("path", cfg.ExcelPath).Str("sheet", cfg.ClientsSheet).Msg("clients loaded")
	return sales, clients, nil
}

func cleanse(ctx context.Context, job string, sales []domain.Sale, clients []domain.Client, policy transformer.UnmatchedPolicy, res *Result) ([]domain.JoinedSale, error) {
	log := logging.FromContext(ctx)
	debug := func(msg string) transformer.RejectFn {
		return func(line int, reason string) {
			log.Debug().Int("line", line).Str("reason", reason).Msg(msg)
		}
	}

	clean, dropped := transformer.CoerceAmounts(sales, debug("row dropped"))
	res.DroppedInvalid = dropped
	metrics.RecordRow(job, metrics.KindDroppedInvalidAmount, int64(dropped))
	log.Info().Int("dropped_invalid_amount", dropped).Int("remaining", len(clean)).Msg("amounts coerced")

	idx, dups := transformer.IndexClients(clients, debug("duplicate client ignored"))
	res.Duplicates = dups
	metrics.RecordRow(job, metrics.KindDuplicateClient, int64(dups))
	if dups > 0 {
		log.Warn().Int("duplicates", dups).Msg("client directory has duplicate client_id values; first occurrence kept")
	}

	joined, st, err := transformer.LeftJoin(clean, idx, policy, debug("unmatched client"))
	res.Join = st
	metrics.RecordRow(job, metrics.KindUnmatchedClient, int64(st.Unmatched))
	if err != nil {
		return nil, err
	}
	ev := log.Info()
	if st.Unmatched > 0 {
		ev = log.Warn()
	}
	ev.Int("matched", st.Matched).
		Int("unmatched", st.Unmatched).
		Int("dropped_unmatched", st.Dropped).
		Str("policy", string(policy)).
		Msg("sales joined to clients")
	return joined, nil
}

func persist(ctx context.Context, cfg config.Config, rows []domain.JoinedSale) (_ int64, err error) {
	log := logging.FromContext(ctx)

	dsn, err := cfg.DB.ConnString()
	if err != nil {
		return 0, err
	}
	log.Info().Str("driver", cfg.DB.Driver).Str("target", cfg.DB.Redacted()).Msg("connecting")

	repo, err := newRepositoryFn(ctx, storage.Config{
		Kind:           cfg.DB.Driver,
		DSN:            dsn,
		Table:          cfg.DB.Table,
		BatchSize:      cfg.DB.BatchSize,
		ConnectTimeout: cfg.DB.ConnectTimeout,
		Job:            cfg.Job,
	})
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := repo.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("closing connection failed")
			err = errors.Join(err, fmt.Errorf("close connection: %w", cerr))
			return
		}
		log.Info().Msg("connection closed")
	}()

	if err := repo.EnsureTable(ctx); err != nil {
		return 0, err
	}
	log.Info().Str("table", cfg.DB.Table).Msg("table ready")

	n, err := repo.LoadSales(ctx, rows)
	if err != nil {
		return 0, err
	}
	metrics.RecordRow(cfg.Job, metrics.KindInserted, n)
	log.Info().Int64("rows", n).Str("table", cfg.DB.Table).Msg("rows inserted and committed")
	return n, nil
}
