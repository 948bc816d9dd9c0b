package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/smart-building-kb/internal/assistant"
	"github.com/mike-a-ellis/smart-building-kb/internal/indexer"
)

var (
	trainCategory string
	trainSeeds    string
	trainSuggest  bool
)

var trainWebCmd = &cobra.Command{
	Use:   "train-web [url]...",
	Short: "Train from building management websites",
	Long: `Fetches the given URLs, or the built-in building management list when none
are given. --seeds reads a YAML file mapping categories to URL lists; each
group is ingested with its own category.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if trainSuggest {
			fmt.Print(assistant.FormatSuggestions(indexer.Suggestions))
			return nil
		}

		groups := []indexer.URLGroup{{Category: trainCategory, URLs: args}}
		if trainSeeds != "" {
			var err error
			if groups, err = indexer.LoadURLSeeds(trainSeeds); err != nil {
				return err
			}
		} else if len(args) == 0 {
			groups[0].URLs = indexer.DefaultTrainingURLs
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		for _, g := range groups {
			result := a.Pipeline.TrainFromURLs(cmd.Context(), g.URLs, g.Category)
			fmt.Print(assistant.FormatTrainResult(result))
		}
		return nil
	},
}

var trainDataCmd = &cobra.Command{
	Use:   "train-data [file]",
	Short: "Load a JSON training data file",
	Long: `Ingests every object-valued top-level section of a JSON training file as
its own document. Defaults to TRAINING_DATA (ai_training_data.json).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		path := a.Config.TrainingData
		if len(args) == 1 {
			path = args[0]
		}
		n, err := a.Pipeline.LoadTrainingData(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Printf("Successfully processed %d chunks from training data\n", n)
		return nil
	},
}

func init() {
	trainWebCmd.Flags().StringVar(&trainCategory, "category", indexer.DefaultCategory, "Category recorded on every chunk")
	trainWebCmd.Flags().StringVar(&trainSeeds, "seeds", "", "YAML file of category: [urls]")
	trainWebCmd.Flags().BoolVar(&trainSuggest, "suggest", false, "Print recommended training URLs and exit")

	rootCmd.AddCommand(trainWebCmd, trainDataCmd)
}
