package all

import (
	"context"
	"reflect"
	"testing"

	"salesetl/internal/storage"
)

func TestAllBackendsRegistered(t *testing.T) {
	want := []string{"mssql", "mysql", "postgres", "sqlite"}
	if got := storage.ListKinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("ListKinds() = %v, want %v", got, want)
	}
}

func TestUnknownKindNamesRegisteredBackends(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Kind: "oracle"})
	want := "unsupported storage.kind=oracle (registered: mssql, mysql, postgres, sqlite)"
	if err == nil || err.Error() != want {
		t.Fatalf("err = %v, want %q", err, want)
	}
}
