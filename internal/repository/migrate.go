package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

const (
	tableResults     = "structure_results"
	tableCorrections = "result_corrections"
)

type columnTypes struct {
	json string
	time string
}

func typesFor(d string) columnTypes {
	if d == dialect.Postgres {
		return columnTypes{json: "JSONB", time: "TIMESTAMPTZ"}
	}
	return columnTypes{json: "TEXT", time: "TEXT"}
}

// Migrate creates the result tables when they do not exist.
func Migrate(ctx context.Context, db *DB) error {
	b := entsql.Dialect(db.Dialect())
	ct := typesFor(db.Dialect())

	results := b.CreateTable(tableResults).IfNotExists().
		Columns(
			b.Column("id").Type("VARCHAR(36)").Attr("NOT NULL"),
			b.Column("filename").Type("TEXT").Attr("NOT NULL"),
			b.Column("layout_signature").Type("VARCHAR(16)").Attr("NOT NULL"),
			b.Column("vendor_guess").Type("TEXT"),
			b.Column("totals_status").Type("VARCHAR(16)"),
			b.Column("status").Type("VARCHAR(16)").Attr("NOT NULL"),
			b.Column("result_json").Type(ct.json).Attr("NOT NULL"),
			b.Column("created_at").Type(ct.time).Attr("NOT NULL"),
			b.Column("updated_at").Type(ct.time).Attr("NOT NULL"),
		).
		PrimaryKey("id")

	corrections := b.CreateTable(tableCorrections).IfNotExists().
		Columns(
			b.Column("id").Type("VARCHAR(36)").Attr("NOT NULL"),
			b.Column("result_id").Type("VARCHAR(36)").Attr("NOT NULL"),
			b.Column("corrected_json").Type(ct.json).Attr("NOT NULL"),
			b.Column("changed_fields").Type(ct.json).Attr("NOT NULL"),
			b.Column("created_at").Type(ct.time).Attr("NOT NULL"),
		).
		PrimaryKey("id").
		ForeignKeys(entsql.ForeignKey().Columns("result_id").
			Reference(entsql.Reference().Table(tableResults).Columns("id")).
			OnDelete("CASCADE"))

	stmts := make([]string, 0, 4)
	for _, q := range []entsql.Querier{results, corrections} {
		query, _ := q.Query()
		stmts = append(stmts, query)
	}
	stmts = append(stmts,
		fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_filename_signature ON %s (filename, layout_signature)", tableResults, tableResults),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_result_id ON %s (result_id)", tableCorrections, tableCorrections),
	)

	sqlDB := db.Driver.DB()
	for _, stmt := range stmts {
		if _, err := sqlDB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
