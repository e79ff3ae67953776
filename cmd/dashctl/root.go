package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings is the subset of server configuration the CLI needs.
type settings struct {
	StagingDir      string        `mapstructure:"staging_dir"`
	KaggleBaseURL   string        `mapstructure:"kaggle_base_url"`
	KaggleConfigDir string        `mapstructure:"kaggle_config_dir"`
	KaggleTimeout   time.Duration `mapstructure:"kaggle_timeout"`
	Encoding        string        `mapstructure:"encoding"`
}

type cli struct {
	out     io.Writer
	v       *viper.Viper
	cfgFile string
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out, v: viper.New()}

	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Manage the datadash staging directory",
		Long:          `dashctl fetches Kaggle datasets into the staging directory, lists and inspects the CSV files there, and clears it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.SetOut(out)

	f := root.PersistentFlags()
	f.StringVar(&c.cfgFile, "config", "", "config file (yaml)")
	f.String("staging-dir", "data", "staging directory")
	f.String("kaggle-base-url", "https://www.kaggle.com/api/v1", "Kaggle API base URL")
	f.String("kaggle-config-dir", "", "directory holding kaggle.json (default ~/.kaggle)")
	f.Duration("kaggle-timeout", 5*time.Minute, "download timeout")
	f.String("encoding", "utf-8", "source encoding for CSV files")

	for key, flag := range map[string]string{
		"staging_dir":       "staging-dir",
		"kaggle_base_url":   "kaggle-base-url",
		"kaggle_config_dir": "kaggle-config-dir",
		"kaggle_timeout":    "kaggle-timeout",
		"encoding":          "encoding",
	} {
		_ = c.v.BindPFlag(key, f.Lookup(flag))
	}

	root.AddCommand(c.fetchCmd(), c.lsCmd(), c.inspectCmd(), c.clearCmd())
	return root
}

// loadConfig layers flags over DATADASH_* env vars over the optional file.
func (c *cli) loadConfig() error {
	c.v.SetEnvPrefix("DATADASH")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", c.cfgFile, err)
		}
	}
	return nil
}

func (c *cli) settings() (settings, error) {
	var s settings
	if err := c.v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("decode settings: %w", err)
	}
	if s.StagingDir == "" {
		return s, fmt.Errorf("staging dir is required")
	}
	return s, nil
}
