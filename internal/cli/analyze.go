package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/chatscopehq/chatscope/internal/chat"
	"github.com/chatscopehq/chatscope/internal/metrics"
	"github.com/chatscopehq/chatscope/internal/sampling"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <export-file>",
	Short: "Compute conversation statistics from a chat export",
	Long: `Parses a chat export file and prints the statistical digest that the
server feeds to the AI analysis. Runs entirely offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, _ := cmd.Flags().GetString("platform")
		asJSON, _ := cmd.Flags().GetBool("json")

		if !chat.SupportedPlatform(platform) {
			return fmt.Errorf("unsupported platform %q (expected whatsapp, telegram, instagram, or discord)", platform)
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read export: %w", err)
		}

		conv := chat.Parse(raw, platform)
		if len(conv.Messages) == 0 {
			return fmt.Errorf("no messages parsed, is this a %s export?", platform)
		}
		qa := metrics.Compute(conv)

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Conversation chat.Metadata                `json:"conversation"`
				Participants []chat.Participant           `json:"participants"`
				Analysis     metrics.QuantitativeAnalysis `json:"analysis"`
			}{conv.Metadata, conv.Participants, qa})
		}

		printSummary(conv, qa)

		samples, err := sampling.Sample(conv, qa, nil)
		if err != nil {
			if errors.Is(err, sampling.ErrInsufficientData) {
				fmt.Println("\nToo few messages for the full digest.")
				return nil
			}
			return err
		}
		fmt.Println()
		fmt.Println(samples.QuantitativeContext)
		return nil
	},
}

func printSummary(conv chat.ParsedConversation, qa metrics.QuantitativeAnalysis) {
	fmt.Printf("Platform:     %s\n", conv.Platform)
	if conv.Title != "" {
		fmt.Printf("Title:        %s\n", conv.Title)
	}
	fmt.Printf("Messages:     %d\n", conv.Metadata.TotalMessages)
	fmt.Printf("Participants: %d\n", len(conv.Participants))
	if conv.Metadata.DurationDays > 0 {
		start := time.UnixMilli(conv.Metadata.DateRange.Start).Format("2006-01-02")
		end := time.UnixMilli(conv.Metadata.DateRange.End).Format("2006-01-02")
		fmt.Printf("Span:         %s to %s (%d days)\n", start, end, conv.Metadata.DurationDays)
	}

	names := make([]string, 0, len(qa.PerPerson))
	for name := range qa.PerPerson {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println()
	for _, name := range names {
		p := qa.PerPerson[name]
		fmt.Printf("%s: %d messages, %d words, %.1f words/message, %d questions\n",
			name, p.MessageCount, p.WordCount, p.AvgWordsPerMsg, p.QuestionsAsked)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("platform", "whatsapp", "Export platform: whatsapp, telegram, instagram, or discord")
	analyzeCmd.Flags().Bool("json", false, "Emit the full statistics as JSON")
}
