package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wagnerlima/contact-graph/internal/apperr"
	"github.com/wagnerlima/contact-graph/internal/config"
	"github.com/wagnerlima/contact-graph/internal/loader"
	"github.com/wagnerlima/contact-graph/internal/models"
	"github.com/wagnerlima/contact-graph/internal/storage"
)

func importCmd(gf *globalFlags) *cobra.Command {
	var (
		dataset string
		file    string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a YAML contact graph into a dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(gf)
			if err != nil {
				return err
			}
			defer logger.Sync()

			g, err := loader.ReadFile(file)
			if err != nil {
				return err
			}
			return importGraph(cmd, cfg, logger, dataset, g)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Target dataset, created if missing")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with persons, places and visits")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("file")
	return cmd
}

func importNeo4jCmd(gf *globalFlags) *cobra.Command {
	var (
		dataset string
		uri     string
	)

	cmd := &cobra.Command{
		Use:   "import-neo4j",
		Short: "Copy the Person/Place/VISITS graph of a Neo4j database into a dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(gf, func(c *config.Config) {
				if uri != "" {
					c.Neo4j.URI = uri
				}
			})
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx := cmd.Context()
			src, err := loader.OpenNeo4j(ctx, cfg.Neo4j, logger)
			if err != nil {
				return err
			}
			defer src.Close(context.WithoutCancel(ctx))

			labels, err := src.Labels(ctx)
			if err != nil {
				return err
			}
			logger.Info("neo4j labels", zap.Strings("labels", labels))

			g, err := src.Fetch(ctx)
			if err != nil {
				return err
			}
			return importGraph(cmd, cfg, logger, dataset, g)
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "Target dataset, created if missing")
	cmd.Flags().StringVar(&uri, "uri", "", "Neo4j URI (overrides config)")
	cmd.MarkFlagRequired("dataset")
	return cmd
}

// importGraph writes g into the named dataset, creating the dataset first if
// it does not exist.
func importGraph(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger, name string, g *models.ContactGraph) error {
	cat, err := storage.OpenCatalog(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	ds, err := cat.GetDataset(name)
	if errors.Is(err, apperr.ErrNotFound) {
		ds, err = cat.CreateDataset(name, "imported")
	}
	if err != nil {
		return err
	}

	store, err := storage.OpenDataset(cat.DatasetDBPath(ds))
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.Import(g)
	if err != nil {
		return fmt.Errorf("import into %s: %w", name, err)
	}
	if err := cat.Touch(name); err != nil {
		return err
	}

	logger.Info("import complete",
		zap.String("dataset", name),
		zap.Int("persons", stats.Persons),
		zap.Int("places", stats.Places),
		zap.Int("visits", stats.Visits),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d persons, %d places and %d visits into %q.\n",
		stats.Persons, stats.Places, stats.Visits, name)
	return nil
}
