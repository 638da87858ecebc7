package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tagframe/coco"
	"tagframe/models"
	"tagframe/store"
	"tagframe/utils"
)

type exportFlags struct {
	projectID uint
	out       string
	indent    bool
}

func exportCommand(flags *globalFlags) *cobra.Command {
	opts := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a project as a COCO dataset",
		Long:  `Write a project as a COCO dataset without going through the API. Without --out the file is named project_<id>_COCO.json.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return runExport(cmd.Context(), config, opts)
		},
	}
	cmd.Flags().UintVarP(&opts.projectID, "project", "p", 0, "project id to export")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file, - for stdout")
	cmd.Flags().BoolVar(&opts.indent, "indent", false, "indent the JSON output")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func runExport(ctx context.Context, config *utils.Config, opts *exportFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := models.ConnectDataBase(config.Database)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	exporter := coco.NewExporter(store.NewDaoFactory(db).Graph(), config.Export, Version)
	dataset, report, err := exporter.Export(ctx, opts.projectID)
	if err != nil {
		return err
	}
	if len(report.DefaultedImages) > 0 {
		log.Warn(fmt.Sprintf("%d images had no dimensions and were exported as %dx%d",
			len(report.DefaultedImages), config.Export.DefaultWidth, config.Export.DefaultHeight))
	}

	var w io.Writer = os.Stdout
	if opts.out != "-" {
		path := opts.out
		if path == "" {
			path = coco.FileName(opts.projectID)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
		log.Info(fmt.Sprintf("Writing %s", path))
	}

	enc := json.NewEncoder(w)
	if opts.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(dataset)
}

func migrateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// Connecting runs the migrations.
			db, err := models.ConnectDataBase(config.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
			log.Info("Schema is up to date")
			return nil
		},
	}
}
