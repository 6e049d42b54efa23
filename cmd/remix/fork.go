package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"remix/internal/ingest"
	"remix/internal/remix"
	"remix/internal/render"
	"remix/internal/schema"
	"remix/internal/segment"
	"remix/internal/storage"

	"github.com/spf13/cobra"
)

var (
	docID      string
	docTitle   string
	viewFormat string
	withTitle  bool
	outPath    string
)

func init() {
	importCmd.Flags().StringVar(&docID, "id", "", "Document ID (defaults to the file name)")
	importCmd.Flags().StringVar(&docTitle, "title", "", "Document title (defaults to the ID)")

	viewCmd.Flags().StringVarP(&viewFormat, "format", "f", "markdown", "Output format: markdown or json")
	viewCmd.Flags().BoolVar(&withTitle, "with-title", false, "Prefix markdown output with the document title")
	viewCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write output to a file instead of stdout")
}

// readTree loads a segment tree from JSON, or from markdown with ids
// derived from namespace.
func readTree(path, namespace string) ([]segment.Segment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isJSON(path) {
		return schema.DecodeTree(raw)
	}
	return ingest.Markdown(string(raw), ingest.HashIDs(namespace)), nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Publish a markdown or JSON document as an upstream original",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		id := docID
		if id == "" {
			id = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		title := docTitle
		if title == "" {
			title = id
		}

		fmt.Printf("📄 Importing %s as %q...\n", path, id)
		tree, err := readTree(path, id)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		svc, err := initService()
		if err != nil {
			return err
		}
		rev, err := svc.Publish(cmd.Context(), &storage.Document{ID: id, OwnerID: ownerID, Title: title, Segments: tree})
		if err != nil {
			return err
		}
		fmt.Printf("✅ %s is at revision %d (%d segments).\n", id, rev, len(segment.Flatten(tree)))
		return nil
	},
}

var forkCmd = &cobra.Command{
	Use:   "fork [document-id]",
	Short: "Create a personal fork of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}
		fork, err := svc.CreateFork(cmd.Context(), ownerID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("🍴 Forked %s at revision %d\n", fork.OriginalID, fork.BaseRevision)
		fmt.Println(fork.ID)
		return nil
	},
}

var forksCmd = &cobra.Command{
	Use:   "forks",
	Short: "List your forks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}
		forks, err := svc.ListForks(cmd.Context(), ownerID)
		if err != nil {
			return err
		}
		if len(forks) == 0 {
			fmt.Println("No forks yet.")
			return nil
		}
		for _, f := range forks {
			fmt.Printf("%s\t%s\trev %d\t%d deltas\t%s\n", f.ID, f.OriginalID, f.BaseRevision, len(f.Deltas), f.UpdatedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var viewCmd = &cobra.Command{
	Use:   "view [fork-id]",
	Short: "Print the effective content of a fork",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}
		view, err := svc.View(cmd.Context(), ownerID, args[0])
		if err != nil {
			return err
		}

		var data []byte
		switch viewFormat {
		case "json":
			if data, err = segment.MarshalTree(view.Segments); err != nil {
				return err
			}
			data = append(data, '\n')
		case "markdown", "md":
			title := ""
			if withTitle {
				title = view.Original.Title
			}
			data = []byte(render.Markdown(title, view.Segments))
		default:
			return fmt.Errorf("unknown format %q", viewFormat)
		}

		if view.Stale {
			fmt.Fprintf(os.Stderr, "⚠️  %s changed upstream (revision %d, fork is at %d). Run `remix sync %s`.\n",
				view.Original.ID, view.Original.Revision, view.Fork.BaseRevision, view.Fork.ID)
		}
		if n := len(view.Report.Skipped); n > 0 {
			fmt.Fprintf(os.Stderr, "⚠️  %d delta(s) no longer apply.\n", n)
		}
		return writeOutput(outPath, data)
	},
}

var editCmd = &cobra.Command{
	Use:   "edit [fork-id] [file]",
	Short: "Save an edited copy of a fork's content",
	Long: `Save an edited copy of a fork's content.

The file is either a JSON segment tree or markdown as printed by "remix view".
Only the differences against the original are stored.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		current, err := svc.Fork(ctx, ownerID, args[0])
		if err != nil {
			return err
		}
		edited, err := readTree(args[1], current.OriginalID)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[1], err)
		}

		fork, err := svc.SaveEdit(ctx, ownerID, args[0], edited)
		if err != nil {
			return err
		}
		fmt.Printf("💾 Saved %d delta(s) against %s revision %d.\n", len(fork.Deltas), fork.OriginalID, fork.BaseRevision)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [fork-id]",
	Short: "Rebase a fork onto the latest original",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := initService()
		if err != nil {
			return err
		}
		return syncFork(cmd.Context(), svc, args[0], os.Stdout)
	},
}

func syncFork(ctx context.Context, svc *remix.Service, forkID string, out io.Writer) error {
	fmt.Fprintf(out, "🔄 Syncing %s...\n", forkID)
	view, err := svc.Sync(ctx, ownerID, forkID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Rebased onto %s revision %d. Kept %d delta(s), dropped %d orphaned.\n",
		view.Original.ID, view.Original.Revision, len(view.Fork.Deltas), view.Pruned)
	return nil
}
