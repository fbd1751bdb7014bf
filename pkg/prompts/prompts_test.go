package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/sql"
)

func TestGenerationSystem(t *testing.T) {
	allowed := sql.ParseAllowList("public.producto", "Ventas.Pedido")

	prompt := GenerationSystem(datasource.DialectPostgres, allowed)

	assert.Contains(t, prompt, "PostgreSQL")
	assert.Contains(t, prompt, `"public"."producto", "Ventas"."Pedido"`)
	assert.Contains(t, prompt, "SELECT 1 WHERE FALSE")
	assert.Contains(t, prompt, "LIMIT n")
	assert.NotContains(t, prompt, "TOP n")
}

func TestGenerationSystem_SQLServer(t *testing.T) {
	prompt := GenerationSystem(datasource.DialectSQLServer, sql.ParseAllowList("dbo.orders"))

	assert.Contains(t, prompt, "Microsoft SQL Server")
	assert.Contains(t, prompt, "TOP n")
}

func TestGenerationSystem_NoTables(t *testing.T) {
	prompt := GenerationSystem(datasource.DialectPostgres, nil)
	assert.Contains(t, prompt, "(none)")
}

func TestGenerationUser(t *testing.T) {
	prompt := GenerationUser("TABLE public.producto ( id integer )", "  top 5 products  ")

	assert.Equal(t, "Schema:\nTABLE public.producto ( id integer )\n\nQuestion: top 5 products\n\nSQL:", prompt)
}

func TestFormattingUser(t *testing.T) {
	prompt := FormattingUser(FormattingInput{
		Question:    "top products",
		FoundTables: []string{"public.producto"},
		Columns:     []string{"nombre", "precio"},
		RowCount:    12,
		SampleRows:  []map[string]any{{"nombre": "Laptop", "precio": 1899}},
		Summaries: []ColumnSummary{
			{
				Column: "precio", Count: 12, Min: "40", Max: "1899", Avg: "512.25",
				Currency: &CurrencySummary{Min: "$40", Max: "$1,899", Avg: "$512"},
			},
			{Column: "stock", Count: 12, Min: "0", Max: "80", Avg: "14.5"},
		},
	})

	assert.Contains(t, prompt, "Tables: public.producto")
	assert.Contains(t, prompt, "Total rows: 12 (showing 1)")
	assert.Contains(t, prompt, "- precio: count=12 min=40 max=1899 avg=512.25 (currency: min=$40 max=$1,899 avg=$512)")
	assert.Contains(t, prompt, "- stock: count=12 min=0 max=80 avg=14.5\n")
	assert.Contains(t, prompt, `"nombre": "Laptop"`)
	assert.NotContains(t, prompt, "Diagnostic:")
}

func TestFormattingUser_EmptyWithDiagnostic(t *testing.T) {
	prompt := FormattingUser(FormattingInput{
		Question:    "orders",
		PriorAnswer: "No results. Diagnostics: table public.pedido has 0 rows",
	})

	assert.Contains(t, prompt, "Diagnostic: No results. Diagnostics: table public.pedido has 0 rows")
	assert.Contains(t, prompt, "Sample rows (JSON):\n[]")
}

func TestFormattingSystem(t *testing.T) {
	for _, heading := range []string{"## Answer", "## Results", "## Notes", "<caption>", `<th scope="col">`} {
		assert.Contains(t, FormattingSystem, heading)
	}
}
