package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every chunk from the active collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to clear without --yes")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		clearer, ok := a.Collection.(storage.Clearer)
		if !ok {
			return fmt.Errorf("storage tier %s cannot be cleared", a.Collection.Capabilities().Tier)
		}
		if err := clearer.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Cleared collection %q\n", a.Config.Collection)
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm deletion")

	rootCmd.AddCommand(clearCmd)
}
