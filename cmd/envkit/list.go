package main

import (
	"fmt"

	"github.com/envkit/core/pkg/display"
	"github.com/envkit/core/pkg/lockfile"
	"github.com/envkit/core/pkg/manifest"
	"github.com/envkit/core/pkg/output"
	"github.com/spf13/cobra"
)

var listOutputFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the packages pinned in manifest.lock",
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listOutputFlag, "output", "o", "", "Output format: json, csv (default: table)")
}

func runList(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	lock, err := env.CurrentLockfile()
	if err != nil {
		return err
	}
	if lock == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no manifest.lock yet; run 'envkit lock' first")
		return nil
	}
	if lock.Kind == manifest.KindLegacy {
		fmt.Fprintln(cmd.OutOrStdout(), "legacy manifest.lock is opaque; nothing to list")
		return nil
	}

	lockfile.SortPackages(lock.Packages)

	format := output.ParseFormat(listOutputFlag)
	if output.IsStructuredFormat(format) {
		return writeStructuredPackages(cmd, format, lock.Packages)
	}

	groups := make([]string, 0, len(lock.Packages))
	for _, p := range lock.Packages {
		groups = append(groups, p.Group)
	}
	showGroup := output.ShouldShowGroupColumn(groups)

	table := display.NewPackagesTable(showGroup)
	table.Fprint(cmd.OutOrStdout())
	for _, p := range lock.Packages {
		fmt.Fprintln(cmd.OutOrStdout(), table.FormatRow(p.InstallID, p.Pname, p.Version, p.System, p.Group, p.Derivation))
	}
	return nil
}

func writeStructuredPackages(cmd *cobra.Command, format output.Format, packages []lockfile.LockedPackage) error {
	f := output.NewFormatter(format, cmd.OutOrStdout())
	if format == output.FormatJSON {
		return f.WriteJSON(packages)
	}

	headers := []string{"install_id", "pname", "version", "system", "group", "derivation"}
	rows := make([][]string, 0, len(packages))
	for _, p := range packages {
		rows = append(rows, []string{p.InstallID, p.Pname, p.Version, p.System, p.Group, p.Derivation})
	}
	return f.WriteCSV(headers, rows)
}
