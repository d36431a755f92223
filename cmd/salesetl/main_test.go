package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func fixtures(t *testing.T) (csvPath, xlsxPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()

	csvPath = filepath.Join(dir, "sales_q1.csv")
	body := "sales_id,date,amount,client_id,product\n" +
		"1,2024-01-05,100.50,C1,Widget\n" +
		"2,2024-01-06,bad,C2,Gadget\n"
	if err := os.WriteFile(csvPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "data"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range [][]any{{"client_id", "name", "region"}, {"C1", "Alice", "East"}} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("data", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	xlsxPath = filepath.Join(dir, "clients.xlsx")
	if err := f.SaveAs(xlsxPath); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	return csvPath, xlsxPath, filepath.Join(dir, "sales.db")
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	// An empty dotenv keeps a developer's ./.env out of the run, and logs go
	// to stderr so assertions on stdout only see the report.
	envFile := filepath.Join(t.TempDir(), "empty.env")
	if err := os.WriteFile(envFile, nil, 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	args = append(args, "--log-output", "stderr", "--env-file", envFile)
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_SQLiteEndToEnd(t *testing.T) {
	csvPath, xlsxPath, dbPath := fixtures(t)

	code, out, errOut := run(t, "run",
		"--csv-path", csvPath,
		"--excel-path", xlsxPath,
		"--db-driver", "sqlite",
		"--db-name", dbPath,
	)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	for _, want := range []string{"Total sales: 1", "Total revenue: 100.50 RUB", "East", "Widget"} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestRun_DefaultCommandIsRun(t *testing.T) {
	csvPath, xlsxPath, dbPath := fixtures(t)

	code, out, errOut := run(t,
		"--csv-path", csvPath,
		"--excel-path", xlsxPath,
		"--db-driver", "sqlite",
		"--db-name", dbPath,
		"-v",
	)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "Total sales: 1") {
		t.Fatalf("stdout missing report:\n%s", out)
	}
}

func TestRun_MissingInputExitCode(t *testing.T) {
	_, xlsxPath, dbPath := fixtures(t)

	code, _, errOut := run(t, "run",
		"--csv-path", filepath.Join(t.TempDir(), "missing.csv"),
		"--excel-path", xlsxPath,
		"--db-driver", "sqlite",
		"--db-name", dbPath,
	)
	if code != 3 {
		t.Fatalf("exit code = %d, want 3; stderr:\n%s", code, errOut)
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("database must not be created on missing input (stat err = %v)", err)
	}
}

func TestValidate(t *testing.T) {
	code, out, errOut := run(t, "validate", "--db-driver", "sqlite", "--db-name", "x.db")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr:\n%s", code, errOut)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Fatalf("stdout = %q", out)
	}

	code, _, errOut = run(t, "validate", "--db-driver", "oracle")
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(errOut, "db.driver") {
		t.Fatalf("stderr should name db.driver:\n%s", errOut)
	}
}

func TestUnknownFlagIsConfigError(t *testing.T) {
	if code, _, _ := run(t, "run", "--no-such-flag"); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}
