package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/envkit/core/pkg/environment"
	"github.com/spf13/cobra"
)

var editUnsafeFlag bool

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open manifest.toml in $EDITOR and transact the result",
	RunE:  runEdit,
}

func init() {
	editCmd.Flags().BoolVar(&editUnsafeFlag, "unsafe", false, "Commit the edit even if resolving or building it fails")
}

func runEdit(cmd *cobra.Command, args []string) error {
	env := newEnvironment()
	newText, err := editInEditor(env)
	if err != nil {
		return err
	}

	var result *environment.EditResult
	if editUnsafeFlag {
		result, err = env.EditUnsafe(context.Background(), newText)
	} else {
		result, err = env.Edit(context.Background(), newText)
	}
	if result != nil {
		reportEditResult(cmd, result)
	}
	return err
}

func reportEditResult(cmd *cobra.Command, result *environment.EditResult) {
	switch result.Kind {
	case environment.EditUnchanged:
		fmt.Fprintln(cmd.OutOrStdout(), "no changes")
	case environment.EditReActivateRequired:
		fmt.Fprintf(cmd.OutOrStdout(), "built %s; re-activate the environment to pick up hook/vars changes\n", result.StorePath)
	case environment.EditSuccess:
		fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", result.StorePath)
	}
}

// editInEditor writes the current manifest to a temp file, runs $EDITOR (or
// vi) against it, and returns the edited contents.
func editInEditor(env *environment.ReadOnly) (string, error) {
	current, err := env.ManifestText()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "envkit-manifest-*.toml")
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.WriteString(current); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	editorBin := os.Getenv("EDITOR")
	if editorBin == "" {
		editorBin = "vi"
	}

	c := exec.Command(editorBin, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("editor exited with an error: %w", err)
	}

	edited, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(edited), nil
}
