package all

import (
	"testing"

	"datascout/internal/storage"
)

func TestKinds(t *testing.T) {
	t.Parallel()

	have := map[string]bool{}
	for _, k := range storage.ListKinds() {
		have[k] = true
	}
	for _, want := range []string{"mssql", "mysql", "postgres", "sqlite"} {
		if !have[want] {
			t.Fatalf("kind %q is not registered: %v", want, storage.ListKinds())
		}
	}
}
