package main

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "FLASHBUF"

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "flashbuf",
		Short: "flashbuf compares page buffer replacement policies on a flash cost model.",
		Long: `flashbuf replays one page request stream against several buffer managers
(LRU, clean-first LRU, LRU-WSR and baselines), each over its own block device,
and reports device traffic and cost per policy.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			return setAllConfig(v, cmd.Flags())
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")

	rc.AddCommand(newBenchCommand(stdin, stdout, stderr))
	rc.AddCommand(newGenerateConfigCommand(stdin, stdout, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig fills every flag the command line left unset, first from
// FLASHBUF_* environment variables, then from the toml file named by --config.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		if err := readConfigFile(v, path, flags); err != nil {
			return err
		}
	}

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed {
			return
		}
		if e := f.Value.Set(configValue(v, f)); e != nil {
			err = errors.Wrapf(e, "option %s", f.Name)
		}
	})
	return err
}

// readConfigFile loads a toml file into v. Keys must name a flag.
func readConfigFile(v *viper.Viper, path string, flags *pflag.FlagSet) error {
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	for _, key := range v.AllKeys() {
		if flags.Lookup(key) == nil {
			return errors.Errorf("unknown option %q in config file %s", key, path)
		}
	}
	return nil
}

// configValue renders the layered value of f in the form f.Value.Set parses.
func configValue(v *viper.Viper, f *pflag.Flag) string {
	if f.Value.Type() == "stringSlice" {
		// toml arrays come back as slices, which GetString renders empty
		return strings.Join(v.GetStringSlice(f.Name), ",")
	}
	return v.GetString(f.Name)
}
