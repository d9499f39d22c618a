package main

import (
	"errors"
	"os"
	"time"

	"github.com/berfenger/natureremo2mqtt/pkg/natureremo"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags
	flagToken   string
	flagBaseURL string
	flagTimeout time.Duration
	flagDebug   bool
)

// newClient is replaced in tests
var newClient = func() (natureremo.CloudClient, error) {
	token := resolveToken()
	if token == "" {
		return nil, errors.New("missing token: use --token or NATUREREMO_NATURE_REMO_TOKEN")
	}
	logger := zap.NewNop()
	if flagDebug {
		logger = zap.Must(zap.NewDevelopment())
	}
	return natureremo.NewClient(flagBaseURL, token, flagTimeout, logger), nil
}

var rootCmd = &cobra.Command{
	Use:   "natureremo-cli",
	Short: "Nature Remo cloud client",
	Long: `natureremo-cli talks to the Nature Remo cloud API with the same client
the bridge uses. It checks access tokens, lists the devices and appliances of
an account and drives air conditioners.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "Nature Remo access token (env: NATUREREMO_NATURE_REMO_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", natureremo.BASE_URL, "Nature Remo API base URL")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log HTTP requests")
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = versioninfo.Short()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveToken returns the token from flag or environment.
func resolveToken() string {
	if flagToken != "" {
		return flagToken
	}
	return os.Getenv("NATUREREMO_NATURE_REMO_TOKEN")
}
