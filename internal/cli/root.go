package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/entorg/internal/logger"
	"github.com/ppiankov/entorg/internal/model"
)

const version = "entorg v0.1.0"

const rule = "═══════════════════════════════════════════════════════════"

// envKeys maps nested keys to env names: http.timeout -> ENTORG_HTTP_TIMEOUT
var envKeys = strings.NewReplacer(".", "_")

var (
	cfgFile string
	verbose bool

	// set by PersistentPreRunE for every command
	cfg *model.Config
	log *logger.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "entorg",
	Short: "entorg - entity ownership ranges and duplicate-entity checks",
	Long: `entorg derives, for every dataset of a planning data pipeline, which
organisation is accountable for each entity and publishes the result as a
compact table of entity ranges.

It never guesses: entities claimed by several local authorities are reported
as conflicts until a decision is recorded, and a range table with overlapping
ranges is never published.

It also compares newly collected resources with the resource they replaced
and reports new entities that repeat existing content.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig()
		if err != nil {
			return err
		}
		level := c.Log.Level
		if verbose {
			level = "debug"
		}
		l, err := logger.New(c.Log.Mode, level)
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		cfg, log = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Sync()
		}
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.entorg/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if err := setDefaults(viper.GetViper()); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}
		viper.AddConfigPath(home + "/.entorg")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ENTORG")
	viper.SetEnvKeyReplacer(envKeys)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// banner prints a titled section header to stderr
func banner(title string) {
	fmt.Fprintf(os.Stderr, "\n%s\n  %s\n%s\n\n", rule, title, rule)
}

// setDefaults registers every default setting so env overrides reach nested keys
func setDefaults(v *viper.Viper) error {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	for key, value := range tree {
		v.SetDefault(key, value)
	}
	return nil
}

// loadConfig merges defaults, config file and environment into a Config
func loadConfig() (*model.Config, error) {
	c := model.DefaultConfig()
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if c.Concurrency.Workers <= 0 {
		c.Concurrency.Workers = 1
	}
	return c, nil
}
