// Package display provides table schemas for the
// envkit CLI's human-readable output: a locked-package listing and the
// upgrade command's changed-derivation listing, both rendered through
// pkg/output.Table.
//
//	table := display.NewPackagesTable(showGroup)
//	table.Fprint(os.Stdout)
//	fmt.Println(table.FormatRow(pkg.InstallID, pkg.Pname, pkg.Version, pkg.System, pkg.Group, pkg.Derivation))
package display
