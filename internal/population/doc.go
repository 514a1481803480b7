// Package population loads reference and observed tables and builds the
// top-K attribute distributions that bound a guess space.
//
// Tables are read from CSV (header row) or Parquet. Column names are
// normalized on load (trimmed, BOM stripped, lowercased, spaces replaced by
// underscores) so "First Name" and "first_name" address the same column.
//
// When a reference table has first_name but no first_initial column, or dob
// but no year_of_birth column, the missing column is derived on load.
package population
