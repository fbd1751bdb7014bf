//go:build integration

package testhelpers

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestTestDB_FixturesApplied(t *testing.T) {
	testDB := GetTestDB(t)
	ctx := context.Background()

	tests := []struct {
		table    string
		expected int
	}{
		{"public.producto", 8},
		{"public.cliente", 3},
		{"public.pedido", 0},
		{"archivo.cliente", 0},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			var count int
			if err := testDB.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+tt.table).Scan(&count); err != nil {
				t.Fatalf("failed to count %s: %v", tt.table, err)
			}
			if count != tt.expected {
				t.Errorf("expected %d rows in %s, got %d", tt.expected, tt.table, count)
			}
		})
	}
}

func TestApplyFixtures_Idempotent(t *testing.T) {
	testDB := GetTestDB(t)

	if err := ApplyFixtures(testDB.ConnStr, zap.NewNop()); err != nil {
		t.Fatalf("expected re-applying fixtures to be a no-op, got %v", err)
	}
}
