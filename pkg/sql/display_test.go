package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanForDisplay(t *testing.T) {
	tests := []struct {
		name  string
		sql   string
		found []string
		want  string
	}{
		{
			name:  "quoted column qualifiers stripped",
			sql:   `SELECT "public"."producto"."precio" FROM "public"."producto" ORDER BY "public"."producto"."precio" DESC LIMIT 5`,
			found: []string{"public.producto"},
			want:  `SELECT "precio" FROM "public"."producto" ORDER BY "precio" DESC LIMIT 5`,
		},
		{
			name:  "bare qualifiers at the start of the text",
			sql:   "public.producto.precio FROM public.producto",
			found: []string{"public.producto"},
			want:  "precio FROM public.producto",
		},
		{
			name:  "case-insensitive",
			sql:   `SELECT "Public"."Producto"."Precio" FROM "Public"."Producto"`,
			found: []string{"public.producto"},
			want:  `SELECT "Precio" FROM "Public"."Producto"`,
		},
		{
			name:  "literals are kept",
			sql:   "SELECT public.producto.precio, 'public.producto.x' FROM public.producto",
			found: []string{"public.producto"},
			want:  "SELECT precio, 'public.producto.x' FROM public.producto",
		},
		{
			name:  "two tables leave the query alone",
			sql:   "SELECT public.a.x, public.b.y FROM public.a, public.b",
			found: []string{"public.a", "public.b"},
			want:  "SELECT public.a.x, public.b.y FROM public.a, public.b",
		},
		{
			name:  "similar table name is not touched",
			sql:   "SELECT public.producto_old.precio FROM public.producto",
			found: []string{"public.producto"},
			want:  "SELECT public.producto_old.precio FROM public.producto",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanForDisplay(tt.sql, tt.found))
		})
	}
}
