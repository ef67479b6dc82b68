package main

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/lime-engine/lime/internal/config"
	"github.com/lime-engine/lime/internal/errors"
	"github.com/lime-engine/lime/pkg/script"
	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate lime.json and compile every script",
		Long: `Check loads lime.json, finds main.lua, and compiles every .lua file
under the script root without running any of them.

Examples:
  lime check
  lime check ./arena`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runCheck(dir)
		},
	}
	return cmd
}

func runCheck(dir string) error {
	cfg, err := config.LoadFromDir(dir)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	success("Configuration OK")

	root := cfg.ScriptsPath()
	entry, err := script.FindEntry(root)
	if err != nil {
		return errors.New("L001").WithDetail("Searched " + root)
	}
	info("Entry script: %s", entry)

	failures, checked, err := checkScripts(root)
	if err != nil {
		return err
	}
	if len(failures) > 0 {
		for _, f := range failures {
			errorMsg("%s", f)
		}
		return errors.New("L040").WithDetail(fmt.Sprintf("%d of %d scripts failed to compile", len(failures), checked))
	}
	success("%d scripts compiled", checked)
	return nil
}

// checkScripts compiles every .lua file under root and returns the
// failures.
func checkScripts(root string) (failures []string, checked int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".lua") {
			return nil
		}
		checked++
		if err := script.CheckSyntax(path); err != nil {
			failures = append(failures, err.Error())
		}
		return nil
	})
	return failures, checked, err
}
