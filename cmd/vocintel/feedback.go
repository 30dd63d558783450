package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/VoCIntel/internal/aggregate"
	"github.com/TobiSchelling/VoCIntel/internal/collect"
	"github.com/TobiSchelling/VoCIntel/internal/store"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Capture and review customer feedback",
}

var feedbackInput collect.FeedbackInput

var feedbackAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Classify and store a piece of feedback (reads stdin when text is '-')",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := args[0]
		if text == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			text = string(data)
		}

		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		in := feedbackInput
		in.Text = text
		rec, err := collect.NewCollector(s, newGateway(ctx)).SubmitFeedback(ctx, in)
		if err != nil {
			return err
		}

		fmt.Printf("Stored feedback %s\n", rec.ID)
		fmt.Printf("  Category:  %s\n", aggregate.CategoryLabel(rec.Category))
		fmt.Printf("  Sentiment: %s\n", rec.Sentiment)
		fmt.Printf("  Urgency:   %s\n", rec.Urgency)
		fmt.Printf("  Summary:   %s\n", rec.Summary)
		if len(rec.FeaturesMentioned) > 0 {
			fmt.Printf("  Features:  %s\n", strings.Join(rec.FeaturesMentioned, ", "))
		}
		if len(rec.CompetitorsMentioned) > 0 {
			fmt.Printf("  Competitors: %s\n", strings.Join(rec.CompetitorsMentioned, ", "))
		}
		return nil
	},
}

var (
	listJSON   bool
	listFilter aggregate.Filter
)

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored feedback, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := listFilter.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.Feedback.List(ctx)
		if err != nil {
			return err
		}
		total := len(items)
		items = listFilter.Apply(items, time.Now())

		if listJSON {
			return printJSON(items)
		}
		if len(items) == 0 && !listFilter.IsEmpty() {
			fmt.Printf("None of the %d feedback items match the filter.\n", total)
			return nil
		}
		if len(items) == 0 {
			fmt.Println("No feedback yet. Add some with: vocintel feedback add \"...\"")
			return nil
		}
		for _, r := range items {
			printFeedback(r)
		}
		if listFilter.IsEmpty() {
			fmt.Printf("\n%d items, %s total ARR\n", len(items), aggregate.FormatCurrency(aggregate.TotalARR(items)))
		} else {
			fmt.Printf("\n%d of %d items, %s total ARR\n", len(items), total, aggregate.FormatCurrency(aggregate.TotalARR(items)))
		}
		return nil
	},
}

func printFeedback(r store.FeedbackRecord) {
	who := r.CustomerName
	if who == "" {
		who = "anonymous"
	}
	fmt.Printf("%s  %s  [%s/%s/%s] %s (%s, %s)\n",
		r.ID, r.Timestamp.Local().Format("2006-01-02"),
		r.Category, r.Sentiment, r.Urgency, who, r.ARRTier, r.CustomerHealth)
	fmt.Printf("    %s\n", truncate(r.Summary, 100))
}

var feedbackDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a feedback item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if _, err := s.Feedback.Get(ctx, args[0]); err != nil {
			return err
		}
		if _, err := s.Feedback.DeleteByID(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted feedback %s\n", args[0])
		return nil
	},
}

func init() {
	f := feedbackAddCmd.Flags()
	f.StringVar(&feedbackInput.Source, "source", "", "Where the feedback came from (sales_call, support_ticket, chat, email, other)")
	f.StringVar(&feedbackInput.CustomerName, "customer", "", "Customer name")
	f.StringVar(&feedbackInput.ARRTier, "tier", "", "ARR tier (<50k, 50-200k, 200k-1M, 1M+)")
	f.StringVar(&feedbackInput.CustomerHealth, "health", "", "Customer health (healthy, at_risk, churned)")
	f.StringVar(&feedbackInput.StrategicValue, "strategic", "", "Strategic value (standard, strategic)")

	l := feedbackListCmd.Flags()
	l.BoolVar(&listJSON, "json", false, "Print records as JSON")
	l.StringVar(&listFilter.DateRange, "range", aggregate.RangeAll, "Date range (all, 7d, 30d, 90d)")
	l.StringSliceVar(&listFilter.Categories, "category", nil, "Only these categories")
	l.StringSliceVar(&listFilter.Tiers, "tier", nil, "Only these ARR tiers")
	l.StringSliceVar(&listFilter.Sentiments, "sentiment", nil, "Only these sentiments")
	l.StringSliceVar(&listFilter.Urgencies, "urgency", nil, "Only these urgencies")

	feedbackCmd.AddCommand(feedbackAddCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackDeleteCmd)
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
