// Command console is the JobCatcher conversation gateway. It terminates
// browser websockets, decodes the assistant backend's event stream and
// renders it into display frames: streamed messages, tool indicators,
// job cards and skill heatmaps.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jobcatcher/console/internal/config"
	"github.com/jobcatcher/console/internal/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "console",
	Short: "JobCatcher conversation console",
	Long: `Console sits between the browser and the JobCatcher assistant backend.
It proxies resume uploads, streams assistant turns over a websocket and
routes job matches and skill heatmaps to their display panels.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "console.yaml", "Path to the optional YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies the optional config file, then configures logging
// from whatever the environment now holds.
func loadConfig() error {
	fc, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	fc.Apply()
	logger.Setup()
	return nil
}
