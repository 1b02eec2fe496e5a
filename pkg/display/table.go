package display

import "github.com/envkit/core/pkg/output"

// ColumnDef defines a single table column's properties.
type ColumnDef struct {
	Name     string
	MinWidth int
	Optional bool
}

// Schema defines a complete table structure.
type Schema struct {
	Columns []ColumnDef
}

// Predefined table schemas - single source of truth for envkit's CLI output.
var (
	// PackagesSchema defines columns for the 'list' command: one row per
	// LockedPackage. GROUP is optional since most manifests have no groups.
	PackagesSchema = Schema{
		Columns: []ColumnDef{
			{Name: "INSTALL ID", MinWidth: 10},
			{Name: "PNAME", MinWidth: 5},
			{Name: "VERSION", MinWidth: 7},
			{Name: "SYSTEM", MinWidth: 6},
			{Name: "GROUP", MinWidth: 5, Optional: true},
			{Name: "DERIVATION", MinWidth: 10},
		},
	}

	// ChangedPackagesSchema defines the single-column listing upgrade
	// prints to report which install-IDs actually changed derivation.
	ChangedPackagesSchema = Schema{
		Columns: []ColumnDef{
			{Name: "INSTALL ID", MinWidth: 10},
		},
	}
)

// TableOptions configures table creation from a schema.
type TableOptions struct {
	ShowOptional map[string]bool
}

// NewTableFromSchema creates an output.Table from a schema and options.
func NewTableFromSchema(schema Schema, options TableOptions) *output.Table {
	table := output.NewTable()
	for _, col := range schema.Columns {
		if col.Optional {
			table.AddConditionalColumn(col.Name, options.ShowOptional[col.Name])
		} else if col.MinWidth > 0 {
			table.AddColumnWithMinWidth(col.Name, col.MinWidth)
		} else {
			table.AddColumn(col.Name)
		}
	}
	return table
}

// NewPackagesTable creates a table for the 'list' command's output.
func NewPackagesTable(showGroup bool) *output.Table {
	return NewTableFromSchema(PackagesSchema, TableOptions{
		ShowOptional: map[string]bool{"GROUP": showGroup},
	})
}

// NewChangedPackagesTable creates a table reporting which install-IDs an
// upgrade actually changed the derivation of. The update command does not
// use it; it prints only the resulting store path.
func NewChangedPackagesTable() *output.Table {
	return NewTableFromSchema(ChangedPackagesSchema, TableOptions{})
}
