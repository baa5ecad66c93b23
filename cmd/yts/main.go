package main

import (
	"fmt"
	"os"
	"strings"
	_ "time/tzdata" // import.timezone must resolve on hosts without a zone database

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/yt-schema/internal/util"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "yts",
		Short: "Import yt-dlp channel metadata into a relational database",
		Long: `yts (YouTube schema) imports the JSON documents yt-dlp writes for a
channel (--write-info-json) into a relational schema.

Every nested playlist is flattened into one entries table; formats, subtitles,
captions, thumbnails, chapters and friends land in their own tables linked by
foreign keys. SQLite is the default store, PostgreSQL is supported.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			util.SetVerbose(viper.GetBool("verbose"))
			util.SetQuiet(viper.GetBool("quiet"))
			if viper.GetBool("no_color") || os.Getenv("NO_COLOR") != "" {
				util.SetColors(false)
			}
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/yts.yaml)")
	rootCmd.PersistentFlags().String("db", defaultDSN, "database DSN (file path for sqlite)")
	rootCmd.PersistentFlags().String("db-kind", defaultKind, "database backend (sqlite, postgres)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored log output")

	// Bind flags to viper
	viper.BindPFlag("db.dsn", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("db.kind", rootCmd.PersistentFlags().Lookup("db-kind"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))

	setDefaults(viper.GetViper())
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("yts")
		viper.SetConfigType("yaml")
	}

	// YTS_DB_DSN, YTS_IMPORT_CONCURRENCY, ...
	viper.SetEnvPrefix("YTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
