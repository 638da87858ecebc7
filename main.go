package main

import (
	"os"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tagframe/utils"
)

// Version is overridden at build time with -ldflags "-X main.Version=..."
var Version = "v0.1.0"

type globalFlags struct {
	configPath string
	debug      bool
}

func rootCommand() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "tagframe",
		Short:         "Image annotation server with COCO export",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging and gin debug mode")

	rootCmd.AddCommand(
		serveCommand(flags),
		exportCommand(flags),
		migrateCommand(flags),
		versionCommand(),
	)
	return rootCmd
}

// loadConfig Read the config and set up logging to match it
func loadConfig(flags *globalFlags) (*utils.Config, error) {
	config, err := utils.NewConfig(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.debug {
		config.Server.Debug = true
	}

	if config.Server.Debug {
		log.SetLevel(log.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		log.SetFormatter(&log.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}
	return config, nil
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(Version)
		},
	}
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
