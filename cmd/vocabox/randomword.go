package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/vocabox/internal/randomword"
)

func newRandomWordCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "random-word",
		Short: "Print a random practice word",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := loadRandomWords()
			if err != nil {
				return err
			}
			word, err := pool.Random()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), word)
			return nil
		},
	}

	command.AddCommand(&cobra.Command{
		Use:   "discard <word>",
		Short: "Remove a word from the practice words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := loadRandomWords()
			if err != nil {
				return err
			}
			if err := pool.Remove(args[0]); err != nil {
				return fmt.Errorf("pool.Remove(%s) > %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d words left\n", pool.Len())
			return nil
		},
	})
	return command
}

func loadRandomWords() (*randomword.Pool, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	pool, err := randomword.Load(cfg.RandomWords.File)
	if err != nil {
		return nil, fmt.Errorf("randomword.Load() > %w", err)
	}
	return pool, nil
}
