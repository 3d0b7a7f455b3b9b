package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/praetorian-inc/ocigraph/internal/logs"
	"github.com/praetorian-inc/ocigraph/internal/message"
)

var (
	cfgFile   string
	closeLogs = func() error { return nil }
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "ocigraph",
	Short:         "ocigraph loads Oracle Cloud Infrastructure inventory into a neo4j graph.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		message.Init(viper.GetBool("no-color"))
		message.SetQuiet(viper.GetBool("quiet"))

		var err error
		closeLogs, err = logs.Configure(logs.Options{
			Level:   viper.GetString("log-level"),
			File:    viper.GetString("log-file"),
			NoColor: viper.GetBool("no-color"),
		})
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogs()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		message.Error("%v", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ocigraph.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-file", "", "also write JSON logs to this file")
	pf.Bool("no-color", false, "disable colored output")
	pf.BoolP("quiet", "q", false, "only print warnings and errors")
	bindFlags(pf)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".ocigraph" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ocigraph")
	}

	viper.SetEnvPrefix("OCIGRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags makes every flag in fs readable through viper under its own name,
// so config file keys and OCIGRAPH_ environment variables can set it.
func bindFlags(fs *pflag.FlagSet) {
	cobra.CheckErr(viper.BindPFlags(fs))
}
