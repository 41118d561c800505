package cmd

import (
	"io"
	"os"

	"github.com/Builder-Lawyers/store-builder/internal/infra/config"
	"github.com/Builder-Lawyers/store-builder/internal/infra/logger"
	"github.com/spf13/cobra"
)

var (
	envFiles  []string
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "storebuilder",
	Short:         "Create, publish and serve generated storefronts",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFiles...); err != nil {
			return err
		}
		_, logCloser = logger.Setup(logger.NewConfig())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env)")
	rootCmd.AddCommand(serveCmd, migrateCmd, redeployCmd, deleteCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
