// Command ledgerctl is the command-line client for ledgerd.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmerrifield20/tourledger/pkg/client"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

const defaultServer = "http://localhost:8080"

var (
	cfgFile   string
	serverURL string
	token     string
	output    string
	timeout   time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Tourism verification ledger CLI",
	Long: `ledgerctl talks to a ledgerd instance.

It registers guides, products and artisans, records bookings, verifies
printed QR codes and inspects the integrity of the verification chain.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".ledgerctl"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("LEDGERCTL")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server")
		}
		if serverURL == "" {
			serverURL = defaultServer
		}
		if token == "" {
			token = viper.GetString("token")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ledgerctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "ledgerd base URL (default "+defaultServer+")")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "bearer token (or LEDGERCTL_TOKEN)")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ledgerctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ledgerctl %s\n", version)
	},
}

func newClient() (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(timeout)}
	if token != "" {
		opts = append(opts, client.WithBearerToken(token))
	}
	return client.New(serverURL, opts...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printJSON writes v to stdout when --output=json and reports whether it did.
func printJSON(v any) (bool, error) {
	if output != "json" {
		return false, nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
