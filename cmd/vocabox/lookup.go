package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/vocabox/internal/bootstrap"
	"github.com/at-ishikawa/vocabox/internal/dictionary"
)

const maxRawWidth = 400

func newLookupCommand() *cobra.Command {
	var (
		from, to    Language
		translation string
	)
	command := &cobra.Command{
		Use:   "lookup <word>",
		Short: "Look a word up in the dictionary or on the translation site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			word := args[0]
			return withDependencies(cmd.Context(), func(ctx context.Context, deps *bootstrap.Dependencies) error {
				resolution, err := deps.Resolver.Resolve(ctx, word, from.String(), to.String())
				if err != nil {
					return fmt.Errorf("resolver.Resolve(%s) > %w", word, err)
				}
				printResolution(cmd.OutOrStdout(), resolution)

				if translation == "" || resolution.Cached {
					return nil
				}
				entry, err := deps.Dictionary.Save(ctx, saveRequest(resolution, translation))
				if err != nil {
					return fmt.Errorf("dictionary.Save(%s) > %w", word, err)
				}
				color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Saved %s with id %d\n", entry.Word, entry.ID)
				return nil
			})
		},
	}
	flags := command.Flags()
	flags.Var(&from, "from", "source language, the configured one by default")
	flags.Var(&to, "to", "target language, the configured one by default")
	flags.StringVar(&translation, "save", "", "save a looked up word with this translation")
	return command
}

// saveRequest stores the spelling the payload belongs to.
func saveRequest(resolution *dictionary.Resolution, translation string) dictionary.SaveRequest {
	word := resolution.Word
	if resolution.CorrectedTerm != "" {
		word = resolution.CorrectedTerm
	}
	return dictionary.SaveRequest{
		Word:          word,
		Translation:   translation,
		Raw:           resolution.Raw,
		Pronunciation: resolution.Pronunciation,
		Version:       resolution.Version,
	}
}

func printResolution(w io.Writer, resolution *dictionary.Resolution) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)

	bold.Fprint(w, resolution.Word)
	switch {
	case resolution.Cached:
		faint.Fprintf(w, " (saved, id %d)", resolution.ID)
	default:
		faint.Fprint(w, " (not saved)")
	}
	fmt.Fprintln(w)

	if resolution.CorrectedTerm != "" {
		color.New(color.FgYellow).Fprintf(w, "Did you mean %s?\n", resolution.CorrectedTerm)
	}
	if resolution.Translation != "" {
		color.New(color.FgGreen).Fprintln(w, resolution.Translation)
	}

	switch {
	case resolution.Pronunciation == "":
		faint.Fprintln(w, "no pronunciation")
	case strings.HasPrefix(resolution.Pronunciation, "data:"):
		faint.Fprintf(w, "pronunciation: inline audio, %d characters\n", len(resolution.Pronunciation))
	default:
		faint.Fprintf(w, "pronunciation: %s\n", resolution.Pronunciation)
	}
	if resolution.Image != "" {
		faint.Fprintf(w, "image: %s\n", resolution.Image)
	}

	fmt.Fprintln(w, compactRaw(resolution.Raw))
}

func compactRaw(raw dictionary.RawPayload) string {
	if len(raw) == 0 {
		return "[]"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	s := buf.String()
	if len(s) > maxRawWidth {
		return s[:maxRawWidth] + "..."
	}
	return s
}
