// Package sheetql turns loosely structured spreadsheets into typed SQLite
// tables and answers natural-language questions against them with
// model-generated, guard-sanitized SQL.
//
// The package is organized around two engines:
//
//   - The ingest engine (Workbook -> Catalog): every sheet of a workbook is
//     loaded into its own relational table. Column types are inferred with a
//     unanimous-vote rule, and every cell is coerced to the inferred type with
//     a null fallback, so malformed data can never fail an insert.
//
//   - The SQL guard (raw SQL -> SanitizedQuery): an untrusted, model-produced
//     SQL string is constrained to a single read-only SELECT against one
//     approved table with a bounded row count. Anything else is rejected.
//
// Typical usage:
//
//	db, err := sheetql.OpenDatabase(":memory:")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	engine := sheetql.NewEngine(db, sheetql.FileSource("clinic.xlsx"), client)
//	if _, err := engine.Refresh(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	answer, err := engine.Ask(ctx, "how many patients visited in January?")
//
// Supported workbook inputs are XLSX files (one table per sheet), CSV and TSV
// files (one table per file, including gz/bz2/xz/zst compressed variants),
// and Parquet files.
package sheetql
