// Command dialogctl is a small development aid for authoring dialog
// scripts: it lints a script file and can step a dialog interactively
// from a terminal, one response per line, printing the actions each
// tick returns.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dialogforge/dialogengine/dialog"
	"github.com/dialogforge/dialogengine/dialog/emit"
	"github.com/dialogforge/dialogengine/dialog/script"
)

func main() {
	root := &cobra.Command{
		Use:   "dialogctl",
		Short: "Author and exercise dialog scripts from the command line",
	}
	root.AddCommand(newLintCmd(), newRunCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <script-file>",
		Short: "Run the static linter against a script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadScript(args[0])
			if err != nil {
				return err
			}
			d, err := dialog.New("lint", def)
			if err != nil {
				return err
			}
			findings := d.Lint()
			if len(findings) == 0 {
				fmt.Println("no findings")
				return nil
			}
			for _, f := range findings {
				fmt.Printf("[%s] %s: %s\n", f.Severity, f.NodeID, f.Message)
			}
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var jsonLog bool
	cmd := &cobra.Command{
		Use:   "run <script-file>",
		Short: "Step a dialog interactively, reading responses from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadScript(args[0])
			if err != nil {
				return err
			}

			emitter := emit.NewLogEmitter(os.Stderr, jsonLog)
			d, err := dialog.New("dialogctl-session", def, dialog.WithEmitter(emitter))
			if err != nil {
				return err
			}

			ctx := context.Background()
			scanner := bufio.NewScanner(os.Stdin)
			var response *string

			for !d.Finished() {
				actions, err := d.Process(ctx, response, nil)
				if err != nil {
					return fmt.Errorf("dialogctl: process: %w", err)
				}
				response = nil

				waiting := false
				for _, a := range actions {
					if err := dialog.ApplyAction(ctx, d, a); err != nil {
						return fmt.Errorf("dialogctl: apply action: %w", err)
					}
					printAction(a)
					if a.Type == "wait-for-input" {
						waiting = true
					}
				}

				if d.Finished() {
					break
				}
				if !waiting {
					// No response needed yet (e.g. mid-script hop);
					// nudge again instead of blocking on stdin.
					continue
				}
				if !scanner.Scan() {
					break
				}
				line := scanner.Text()
				response = &line
			}
			fmt.Printf("dialog finished: %s\n", d.FinishReason())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonLog, "json-log", false, "emit structured JSON event logs instead of text")
	return cmd
}

func printAction(a dialog.Action) {
	switch a.Type {
	case "echo":
		fmt.Printf("> %v\n", a.Data["message"])
	case "raise-alert":
		fmt.Printf("! ALERT: %v\n", a.Data["message"])
	case "store-value", "push-value", "update-value", "wait-for-input":
		// variable-store bookkeeping and wait markers, not user-facing
	default:
		fmt.Printf("[%s] %v\n", a.Type, a.Data)
	}
}

func loadScript(path string) ([]map[string]any, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dialogctl: read %s: %w", path, err)
	}
	return script.Load(src)
}
