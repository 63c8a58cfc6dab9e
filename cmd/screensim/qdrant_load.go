package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/screenlab/screensim/internal/qdrant"
)

func qdrantLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qdrant-load",
		Short: "Load a corpus into a Qdrant collection",
		Long: `Load the configured synthetic or JSONL corpus into a Qdrant collection,
so later sessions can use corpus.source=qdrant.

Examples:
  screensim qdrant-load                          # synthetic corpus
  screensim qdrant-load --path corpus.jsonl --collection statins`,
		RunE: runQdrantLoad,
	}

	cmd.Flags().String("path", "", "JSONL corpus to load (default: synthetic corpus from config)")
	cmd.Flags().String("collection", "", "target collection (default: qdrant.collection from config)")
	cmd.Flags().Bool("recreate", false, "drop the collection first")

	return cmd
}

func runQdrantLoad(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if path, _ := cmd.Flags().GetString("path"); path != "" {
		cfg.Corpus.Source = "jsonl"
		cfg.Corpus.Path = path
	}
	if cfg.Corpus.Source == "qdrant" {
		return fmt.Errorf("qdrant-load needs a synthetic or jsonl corpus source")
	}
	collection := cfg.Qdrant.Collection
	if name, _ := cmd.Flags().GetString("collection"); name != "" {
		collection = name
	}

	docs, err := loadDocuments(ctx, cfg, nil, log)
	if err != nil {
		return err
	}

	client, err := qdrant.NewClient(qdrant.ClientConfigFrom(cfg.Qdrant))
	if err != nil {
		return err
	}
	defer client.Close()

	if recreate, _ := cmd.Flags().GetBool("recreate"); recreate {
		if err := client.DeleteCollection(ctx, collection); err != nil {
			return err
		}
	}
	if err := client.EnsureCollection(ctx, collection); err != nil {
		return err
	}
	if err := client.UpsertDocuments(ctx, collection, docs); err != nil {
		return err
	}

	n, err := client.Count(ctx, collection, qdrant.DocumentFilter{})
	if err != nil {
		return err
	}
	log.Info("Corpus loaded", "collection", collection, "documents", len(docs), "points", n)
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %d documents into %s (%d points)\n", len(docs), collection, n)
	return nil
}
