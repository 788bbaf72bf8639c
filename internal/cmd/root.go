package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gitsvnsync",
	Short: "Bidirectional SVN<->Git synchronization bridge",
	Long:  `gitsvnsync keeps an SVN repository and a Git mirror in sync in both directions, replaying SVN commits onto Git and merged Git pull requests back onto SVN.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default: ~/.config/gitsvnsync/config.yaml)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "enable debug logging")
}
