// Package cmd implements the CLI commands for crowdprice.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "crowdprice",
	Short: "Crowdsourced nearby-price service",
	Long: "crowdprice aggregates user-reported grocery prices by store and\n" +
		"location, validates them through volume-based cross-checking, and\n" +
		"notifies users when prices matching their alerts show up nearby.",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		String("config", "config.yaml", "config file path")
	cobra.CheckErr(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
}

func initConfig() {
	viper.SetEnvPrefix("CROWDPRICE")
	viper.AutomaticEnv()
}

func configPath() string {
	return viper.GetString("config")
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
