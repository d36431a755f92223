package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/goleak"

	"salesetl/internal/config"
	"salesetl/internal/datasource"
	"salesetl/internal/datasource/file"
	"salesetl/internal/domain"
	"salesetl/internal/logging"
	"salesetl/internal/storage"
	_ "salesetl/internal/storage/all"
	"salesetl/internal/transformer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const scenarioCSV = `sales_id,date,amount,client_id,product
1,2024-01-05,100.50,C1,Widget
2,2024-01-06,bad,C2,Gadget
`

func writeInputs(t *testing.T, csvBody string, clients [][]any) config.Config {
	t.Helper()
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "sales_q1.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csvBody), 0o644))

	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("data", "A1", &[]any{"client_id", "name", "region"}))
	for i, row := range clients {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("data", cell, &row))
	}
	xlsxPath := filepath.Join(dir, "clients.xlsx")
	require.NoError(t, f.SaveAs(xlsxPath))

	cfg := config.Defaults()
	cfg.CSVPath = csvPath
	cfg.ExcelPath = xlsxPath
	cfg.DB.Driver = "sqlite"
	cfg.DB.Name = filepath.Join(dir, "sales.db")
	return cfg
}

func TestRun_EndToEndSQLite(t *testing.T) {
	cfg := writeInputs(t, scenarioCSV, [][]any{{"C1", "Alice", "East"}})

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	require.NoError(t, err)

	assert.Equal(t, 2, res.SalesLoaded)
	assert.Equal(t, 1, res.ClientsLoaded)
	assert.Equal(t, 1, res.DroppedInvalid)
	assert.EqualValues(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Summary.Total)
	assert.Equal(t, "Widget", res.Summary.TopProduct)

	report := out.String()
	assert.Contains(t, report, "Total sales: 1")
	assert.Contains(t, report, "Total revenue: 100.50 RUB")
	assert.Contains(t, report, "East")
	assert.Contains(t, report, "Top-selling product: Widget")

	db, err := sql.Open("sqlite", cfg.DB.Name)
	require.NoError(t, err)
	defer db.Close()

	var (
		id                 int64
		amount             string
		name, region, date string
		month              int
	)
	require.NoError(t, db.QueryRow(
		`SELECT sales_id, CAST(amount AS TEXT), name, region, date, month FROM sales_fintech`,
	).Scan(&id, &amount, &name, &region, &date, &month))
	assert.EqualValues(t, 1, id)
	assert.Equal(t, "100.5", amount)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, "East", region)
	assert.Equal(t, "2024-01-05", date)
	assert.Equal(t, 1, month)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sales_fintech`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestRun_UnmatchedPolicies(t *testing.T) {
	csvBody := "sales_id,date,amount,client_id,product\n1,2024-02-01,10,C1,A\n2,2024-02-02,20,C9,B\n"
	clients := [][]any{{"C1", "Alice", "East"}}

	t.Run("keep", func(t *testing.T) {
		cfg := writeInputs(t, csvBody, clients)
		var out bytes.Buffer
		res, err := Run(context.Background(), cfg, &out)
		require.NoError(t, err)
		assert.EqualValues(t, 2, res.Inserted)
		assert.Equal(t, 1, res.Join.Unmatched)
		assert.Contains(t, out.String(), "(no region)")
	})

	t.Run("drop", func(t *testing.T) {
		cfg := writeInputs(t, csvBody, clients)
		cfg.UnmatchedPolicy = "drop"
		res, err := Run(context.Background(), cfg, &bytes.Buffer{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, res.Inserted)
		assert.Equal(t, 1, res.Join.Dropped)
	})

	t.Run("fail", func(t *testing.T) {
		cfg := writeInputs(t, csvBody, clients)
		cfg.UnmatchedPolicy = "fail"
		_, err := Run(context.Background(), cfg, &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, KindTransform, KindOf(err))
		assert.True(t, errors.Is(err, transformer.ErrUnmatchedClient))
		assert.Equal(t, 5, ExitCode(err))
		_, statErr := os.Stat(cfg.DB.Name)
		assert.True(t, os.IsNotExist(statErr), "database must not be touched")
	})
}

func TestRun_MissingCSVAbortsBeforeDatabase(t *testing.T) {
	cfg := writeInputs(t, scenarioCSV, nil)
	cfg.CSVPath = filepath.Join(t.TempDir(), "nope.csv")

	orig := newRepositoryFn
	t.Cleanup(func() { newRepositoryFn = orig })
	newRepositoryFn = func(ctx context.Context, c storage.Config) (storage.Repository, error) {
		t.Fatalf("repository opened despite missing input")
		return nil, nil
	}

	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, KindMissingInput, KindOf(err))
	assert.True(t, errors.Is(err, file.ErrMissingInput))
	assert.Equal(t, 3, ExitCode(err))

	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseVerify, pe.Phase)
}

func TestRun_BadCSVIsLoadError(t *testing.T) {
	cfg := writeInputs(t, "sales_id,date,amount\n1,2024-01-01,5\n", nil)
	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, KindLoad, KindOf(err))
	assert.Equal(t, 4, ExitCode(err))
}

type failingSource struct{ err error }

func (s failingSource) Open(context.Context) (io.ReadCloser, error) { return nil, s.err }

func TestRun_UnreadableInputIsLoadError(t *testing.T) {
	cfg := writeInputs(t, scenarioCSV, [][]any{{"C1", "Alice", "East"}})

	orig := openSource
	t.Cleanup(func() { openSource = orig })
	openSource = func(string) datasource.Source {
		return failingSource{err: errors.New("permission denied")}
	}

	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, KindLoad, KindOf(err))
	assert.ErrorContains(t, err, "permission denied")
}

func TestRun_UnreachableDatabase(t *testing.T) {
	cfg := writeInputs(t, scenarioCSV, [][]any{{"C1", "Alice", "East"}})
	cfg.DB = config.Defaults().DB
	cfg.DB.Host = "127.0.0.1"
	cfg.DB.Port = 1
	cfg.DB.ConnectTimeout = 2 * time.Second

	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, KindDatabase, KindOf(err))
	assert.Equal(t, 6, ExitCode(err))
}

// fakeRepo records calls and fails on demand.
type fakeRepo struct {
	ensureErr error
	loadErr   error
	closeErr  error
	loaded    []domain.JoinedSale
	closes    int
}

func (f *fakeRepo) EnsureTable(context.Context) error { return f.ensureErr }
func (f *fakeRepo) LoadSales(_ context.Context, rows []domain.JoinedSale) (int64, error) {
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	f.loaded = rows
	return int64(len(rows)), nil
}
func (f *fakeRepo) Close() error { f.closes++; return f.closeErr }

func TestRun_ConnectionReleasedOnEveryPath(t *testing.T) {
	tests := []struct {
		name    string
		repo    *fakeRepo
		wantErr bool
	}{
		{name: "success", repo: &fakeRepo{}},
		{name: "ddl error", repo: &fakeRepo{ensureErr: errors.New("permission denied")}, wantErr: true},
		{name: "insert error", repo: &fakeRepo{loadErr: errors.New("insert batch #2 (rows 501-1000): value too long")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeInputs(t, scenarioCSV, [][]any{{"C1", "Alice", "East"}})

			orig := newRepositoryFn
			t.Cleanup(func() { newRepositoryFn = orig })
			var gotCfg storage.Config
			newRepositoryFn = func(ctx context.Context, c storage.Config) (storage.Repository, error) {
				gotCfg = c
				return tt.repo, nil
			}

			_, err := Run(context.Background(), cfg, &bytes.Buffer{})
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindDatabase, KindOf(err))
			} else {
				require.NoError(t, err)
				require.Len(t, tt.repo.loaded, 1)
				assert.Equal(t, "Alice", tt.repo.loaded[0].Name)
			}
			assert.Equal(t, 1, tt.repo.closes, "connection must be closed exactly once")
			assert.Equal(t, "sqlite", gotCfg.Kind)
			assert.Equal(t, cfg.DB.Table, gotCfg.Table)
		})
	}
}

func TestRun_CloseFailureIsReportedNotLoggedAsClosed(t *testing.T) {
	cfg := writeInputs(t, scenarioCSV, [][]any{{"C1", "Alice", "East"}})
	repo := &fakeRepo{closeErr: errors.New("broken pipe")}

	orig := newRepositoryFn
	t.Cleanup(func() { newRepositoryFn = orig })
	newRepositoryFn = func(context.Context, storage.Config) (storage.Repository, error) { return repo, nil }

	var logs bytes.Buffer
	log, err := logging.New(&logs, logging.Options{Format: "json", Level: "info"})
	require.NoError(t, err)
	ctx := logging.WithContext(context.Background(), log)

	_, err = Run(ctx, cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, KindDatabase, KindOf(err))
	assert.ErrorContains(t, err, "close connection: broken pipe")
	assert.Equal(t, 1, repo.closes)
	assert.Contains(t, logs.String(), "closing connection failed")
	assert.NotContains(t, logs.String(), `"connection closed"`)
}

func TestRun_InvalidPolicyIsConfigError(t *testing.T) {
	cfg := config.Defaults()
	cfg.UnmatchedPolicy = "ignore"
	_, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, KindConfig, KindOf(err))
	assert.Equal(t, 2, ExitCode(err))
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, config.Defaults(), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestErrorFormatting(t *testing.T) {
	err := wrap(KindDatabase, PhasePersist, errors.New("connection refused"))
	assert.Equal(t, "persist: database error: connection refused", err.Error())
	assert.Nil(t, wrap(KindLoad, PhaseLoad, nil))
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.True(t, strings.HasPrefix(ConfigError(errors.New("x")).Error(), "config: config error"))
}
