// Package editor implements the manifest editor: pure string-to-string
// transforms that insert or remove install-table entries in manifest.toml
// text while leaving everything else byte-for-byte intact.
//
// The approach follows the exact-position text splicing used elsewhere in
// this codebase for other manifest formats (grounding why this package
// never decodes and re-encodes the whole file): locate a table's byte range
// with a regexp, decode just that range to check for an already-installed
// equivalent descriptor, then splice in the new text rather than
// regenerating the surrounding document.
package editor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/envkit/core/pkg/errkind"
	"github.com/envkit/core/pkg/manifest"
	toml "github.com/pelletier/go-toml/v2"
)

// PackageToInstall is one requested install: a stable install-ID and the
// descriptor of what should be installed under it.
type PackageToInstall struct {
	InstallID  string
	Descriptor manifest.Descriptor
}

// InsertResult is the outcome of Insert.
type InsertResult struct {
	// NewText is absent iff no package was actually added.
	NewText *string
	// AlreadyInstalled maps install-IDs that were already present with an
	// equivalent descriptor to that descriptor.
	AlreadyInstalled map[string]manifest.Descriptor
}

type installBody struct {
	Install map[string]manifest.Descriptor `toml:"install"`
}

var (
	installHeaderRe = regexp.MustCompile(`(?m)^\[install\]\s*\r?\n`)
	tableHeaderRe   = regexp.MustCompile(`(?m)^\[`)
)

// Insert adds each requested package's install-ID to the manifest's install
// table, unless it is already present with an equivalent descriptor (in
// which case it is reported via AlreadyInstalled instead).
func Insert(text string, pkgs []PackageToInstall) (*InsertResult, error) {
	var body installBody
	if err := toml.Unmarshal([]byte(text), &body); err != nil {
		return nil, errkind.Wrap(errkind.KindModifyToml, err)
	}

	result := &InsertResult{AlreadyInstalled: map[string]manifest.Descriptor{}}
	var toAdd []PackageToInstall

	for _, pkg := range pkgs {
		if existing, ok := body.Install[pkg.InstallID]; ok && existing.Equivalent(pkg.Descriptor) {
			result.AlreadyInstalled[pkg.InstallID] = existing
			continue
		}
		toAdd = append(toAdd, pkg)
	}

	if len(toAdd) == 0 {
		return result, nil
	}

	newText := spliceIntoInstallTable(text, toAdd)
	result.NewText = &newText
	return result, nil
}

// Remove deletes each listed install-ID's entry from the manifest's install
// table. A missing ID is a non-fatal no-op.
func Remove(text string, installIDs []string) (string, error) {
	var body installBody
	if err := toml.Unmarshal([]byte(text), &body); err != nil {
		return "", errkind.Wrap(errkind.KindModifyToml, err)
	}

	start, end, found := installTableBounds(text)
	if !found {
		return text, nil
	}

	block := text[start:end]
	for _, id := range installIDs {
		block = removeInstallID(block, id)
	}

	return text[:start] + block + text[end:], nil
}

// installTableBounds finds the byte range of the [install] table's body
// (the text between its header line and the next top-level table header, or
// EOF). ok is false if there is no [install] table at all.
func installTableBounds(text string) (start, end int, ok bool) {
	loc := installHeaderRe.FindStringIndex(text)
	if loc == nil {
		return 0, 0, false
	}
	start = loc[1]

	rest := text[start:]
	if m := tableHeaderRe.FindStringIndex(rest); m != nil {
		end = start + m[0]
	} else {
		end = len(text)
	}
	return start, end, true
}

// spliceIntoInstallTable appends rendered entries for each package into the
// manifest's [install] table, creating the table if absent. An install-ID
// already present with a different descriptor has its old lines stripped
// first, so a re-install replaces the entry instead of duplicating keys.
func spliceIntoInstallTable(text string, pkgs []PackageToInstall) string {
	var entries strings.Builder
	for _, pkg := range pkgs {
		entries.WriteString(renderDescriptor(pkg.InstallID, pkg.Descriptor))
	}

	start, end, found := installTableBounds(text)
	if !found {
		sep := "\n"
		if strings.HasSuffix(text, "\n") || text == "" {
			sep = ""
		}
		return text + sep + "\n[install]\n" + entries.String()
	}

	block := text[start:end]
	for _, pkg := range pkgs {
		block = removeInstallID(block, pkg.InstallID)
	}
	if block != "" && !strings.HasSuffix(block, "\n") {
		block += "\n"
	}
	block += entries.String()

	return text[:start] + block + text[end:]
}

// removeInstallID strips every line belonging to installID (dotted-key form
// "id.field = ..." or inline-table form "id = {...}") from an [install]
// table's body text.
func removeInstallID(block, installID string) string {
	quoted := regexp.QuoteMeta(installID)
	dotted := regexp.MustCompile(`(?m)^` + quoted + `\..*\r?\n?`)
	inline := regexp.MustCompile(`(?m)^` + quoted + `\s*=.*\r?\n?`)
	block = dotted.ReplaceAllString(block, "")
	block = inline.ReplaceAllString(block, "")
	return block
}

// renderDescriptor renders one install-table entry in dotted-key form
// ("id.field = value"), or "id = {}" when the descriptor has no set fields.
func renderDescriptor(id string, d manifest.Descriptor) string {
	var lines []string
	if d.PkgPath != "" {
		lines = append(lines, fmt.Sprintf("%s.pkg-path = %s", id, quoteTOML(d.PkgPath)))
	}
	if d.PkgGroup != "" {
		lines = append(lines, fmt.Sprintf("%s.pkg-group = %s", id, quoteTOML(d.PkgGroup)))
	}
	if d.Version != "" {
		lines = append(lines, fmt.Sprintf("%s.version = %s", id, quoteTOML(d.Version)))
	}
	if d.Priority != nil {
		lines = append(lines, fmt.Sprintf("%s.priority = %d", id, *d.Priority))
	}
	if len(d.Systems) > 0 {
		quoted := make([]string, len(d.Systems))
		for i, s := range d.Systems {
			quoted[i] = quoteTOML(s)
		}
		lines = append(lines, fmt.Sprintf("%s.systems = [%s]", id, strings.Join(quoted, ", ")))
	}

	if len(lines) == 0 {
		return fmt.Sprintf("%s = {}\n", id)
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

func quoteTOML(s string) string {
	return strconv.Quote(s)
}
