package main

import (
	"fmt"
	"os"

	"remix/internal/delta"
	"remix/internal/schema"
	"remix/internal/segment"

	"github.com/spf13/cobra"
)

var (
	namespace string
	diffOut   string
	applyOut  string
	pruneOut  string
)

func init() {
	diffCmd.Flags().StringVar(&namespace, "namespace", "doc", "ID namespace for markdown inputs")
	diffCmd.Flags().StringVarP(&diffOut, "out", "o", "", "Write deltas to a file instead of stdout")
	applyCmd.Flags().StringVar(&namespace, "namespace", "doc", "ID namespace for markdown inputs")
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "Write the tree to a file instead of stdout")
	pruneCmd.Flags().StringVar(&namespace, "namespace", "doc", "ID namespace for markdown inputs")
	pruneCmd.Flags().StringVarP(&pruneOut, "out", "o", "", "Write deltas to a file instead of stdout")
}

func readDeltas(path string) ([]delta.Delta, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return schema.DecodeDeltas(raw)
}

var diffCmd = &cobra.Command{
	Use:   "diff [original] [modified]",
	Short: "Compute the deltas that turn one tree into another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		original, err := readTree(args[0], namespace)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		modified, err := readTree(args[1], namespace)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}

		data, err := delta.Marshal(delta.Compute(original, modified))
		if err != nil {
			return err
		}
		return writeOutput(diffOut, append(data, '\n'))
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply [tree] [deltas.json]",
	Short: "Apply a delta list to a tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := readTree(args[0], namespace)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		deltas, err := readDeltas(args[1])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}

		out, report := delta.ApplyWithReport(base, deltas)
		for _, skip := range report.Skipped {
			fmt.Fprintf(os.Stderr, "⏭️  skipped %s on %q: %s\n", skip.Delta.Op(), skip.Delta.Target(), skip.Reason)
		}
		data, err := segment.MarshalTree(out)
		if err != nil {
			return err
		}
		return writeOutput(applyOut, append(data, '\n'))
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune [deltas.json] [latest]",
	Short: "Drop deltas whose target no longer exists in the latest original",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deltas, err := readDeltas(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		latest, err := readTree(args[1], namespace)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}

		kept := delta.Prune(deltas, latest)
		fmt.Fprintf(os.Stderr, "✂️  kept %d of %d delta(s)\n", len(kept), len(deltas))
		data, err := delta.Marshal(kept)
		if err != nil {
			return err
		}
		return writeOutput(pruneOut, append(data, '\n'))
	},
}
