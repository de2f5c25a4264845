package export

// Table is a generic report dataset: a header row plus value rows.
// Exporters decide how values are rendered for their format.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]any
}
