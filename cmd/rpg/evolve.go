package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rpgraph/rpg/internal/diffparser"
	"github.com/rpgraph/rpg/internal/evolution"
	"github.com/rpgraph/rpg/internal/feature"
	"github.com/rpgraph/rpg/internal/gitutil"
	"github.com/rpgraph/rpg/internal/router"
)

var evolveRoot string

var evolveCmd = &cobra.Command{
	Use:   "evolve <commit-range>",
	Short: "Apply a commit range's changes to an existing graph",
	Long: `evolve parses the entity-level diff of commit-range (e.g. HEAD~1..HEAD)
of the repository at --root and routes each insertion, deletion, and
modification into the configured graph store, following the insert/delete/modify rules that keep
directory groupings coherent as the repository changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvolve,
}

func init() {
	evolveCmd.Flags().StringVar(&evolveRoot, "root", ".", "repository working tree to diff")
	rootCmd.AddCommand(evolveCmd)
}

func runEvolve(cmd *cobra.Command, args []string) error {
	rangeStr := args[0]
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open graph store: %w", err)
	}
	defer store.Close()

	repo := gitutil.Open(evolveRoot)
	if !repo.IsRepo(ctx) {
		return fmt.Errorf("%s is not a git repository", evolveRoot)
	}

	parser := diffparser.New(repo, openASTProvider())
	diff, err := parser.Parse(ctx, rangeStr)
	if err != nil {
		return fmt.Errorf("parse diff: %w", err)
	}

	llm, err := openLLM(ctx, cfg)
	if err != nil {
		logger.WithError(err).Warn("llm client unavailable, tie-break disabled")
	}
	embedder := openEmbedder(cfg)
	r := router.New(store, embedder, llm, cfg.Router)
	extractor := feature.New(featureMode(cfg), llm)

	engine := evolution.New(store, r, extractor, embedder, cfg.Router, "")

	head, err := repo.RevParse(ctx, "HEAD")
	if err != nil {
		logger.WithError(err).Warn("could not resolve HEAD, provenance will be unstamped")
	}

	report, err := engine.Apply(ctx, diff, head)
	if err != nil {
		return fmt.Errorf("apply diff: %w", err)
	}

	fmt.Printf("inserted:  %d\n", len(report.Inserted))
	fmt.Printf("deleted:   %d\n", len(report.Deleted))
	fmt.Printf("modified:  %d\n", len(report.Modified))
	fmt.Printf("rerouted:  %d\n", len(report.Rerouted))
	fmt.Printf("pruned:    %d\n", report.PrunedAncestors)
	for _, e := range report.Errors {
		fmt.Printf("error: %v\n", e)
	}
	return nil
}
