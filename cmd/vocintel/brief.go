package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/VoCIntel/internal/aggregate"
	"github.com/TobiSchelling/VoCIntel/internal/brief"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Generate and read product briefs",
}

var briefPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List selection presets with their current match counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		feedback, err := s.Feedback.List(ctx)
		if err != nil {
			return err
		}
		for _, pc := range aggregate.PresetCounts(feedback) {
			fmt.Printf("  %s %-20s %3d  %s\n", pc.Icon, pc.ID, pc.Count, pc.Description)
		}
		return nil
	},
}

var briefPreset string

var briefGenerateCmd = &cobra.Command{
	Use:   "generate [feedback-ids...]",
	Short: "Generate a brief from selected feedback items or a preset",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		ids := args
		if briefPreset != "" {
			p, ok := aggregate.PresetByID(briefPreset)
			if !ok {
				return fmt.Errorf("unknown preset: %s", briefPreset)
			}
			feedback, err := s.Feedback.List(ctx)
			if err != nil {
				return err
			}
			ids = append(ids, p.Select(feedback)...)
		}

		b, err := brief.NewCompiler(s, newGateway(ctx)).Compile(ctx, ids)
		if err != nil {
			return err
		}

		fmt.Printf("Brief %s generated from %d feedback items.\n\n", b.ID, b.FeedbackCount)
		return renderBrief(*b)
	},
}

var briefListCmd = &cobra.Command{
	Use:   "list",
	Short: "List generated briefs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		briefs, err := s.Briefs.List(ctx)
		if err != nil {
			return err
		}
		if listJSON {
			return printJSON(briefs)
		}
		if len(briefs) == 0 {
			fmt.Println("No briefs yet. Generate one with: vocintel brief generate --preset enterprise_churn")
			return nil
		}
		for _, b := range briefs {
			fmt.Printf("%s  %s  %d items, %d themes\n", b.ID, b.GeneratedAt.Local().Format("2006-01-02 15:04"), b.FeedbackCount, len(b.Themes))
			fmt.Printf("    %s\n", truncate(b.ExecutiveSummary, 100))
		}
		return nil
	},
}

var briefShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Render a brief in the terminal (latest when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := lookupBrief(cmd.Context(), args)
		if err != nil {
			return err
		}
		return renderBrief(*b)
	},
}

var exportOutput string

var briefExportCmd = &cobra.Command{
	Use:   "export [id]",
	Short: "Write a brief as a Markdown file (latest when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := lookupBrief(cmd.Context(), args)
		if err != nil {
			return err
		}

		md := brief.RenderMarkdown(*b)
		if exportOutput == "-" {
			fmt.Print(md)
			return nil
		}

		path := exportOutput
		if path == "" {
			path = brief.ExportFilename(*b)
		}
		if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
			return fmt.Errorf("writing brief: %w", err)
		}
		fmt.Printf("Exported brief to %s\n", path)
		return nil
	},
}

var briefClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all briefs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes && !confirm("Delete all briefs?") {
			return errors.New("aborted")
		}
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Briefs.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("Briefs cleared.")
		return nil
	},
}

// lookupBrief returns the brief named by args, or the newest one.
func lookupBrief(ctx context.Context, args []string) (*store.Brief, error) {
	s, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if len(args) == 1 {
		b, err := s.Briefs.Get(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return &b, nil
	}

	briefs, err := s.Briefs.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(briefs) == 0 {
		return nil, errors.New("no briefs generated yet")
	}
	return &briefs[0], nil
}

func renderBrief(b store.Brief) error {
	md := brief.RenderMarkdown(b)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	out, err := renderer.Render(md)
	if err != nil {
		fmt.Print(md)
		return nil
	}
	fmt.Print(out)
	return nil
}

func init() {
	briefGenerateCmd.Flags().StringVar(&briefPreset, "preset", "", "Select items with a preset (see 'vocintel brief presets')")
	briefListCmd.Flags().BoolVar(&listJSON, "json", false, "Print briefs as JSON")
	briefExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file ('-' for stdout; default product-brief-<date>.md)")
	briefClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Do not ask for confirmation")

	briefCmd.AddCommand(briefPresetsCmd)
	briefCmd.AddCommand(briefGenerateCmd)
	briefCmd.AddCommand(briefListCmd)
	briefCmd.AddCommand(briefShowCmd)
	briefCmd.AddCommand(briefExportCmd)
	briefCmd.AddCommand(briefClearCmd)
}
