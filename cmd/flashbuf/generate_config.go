package main

import (
	"io"

	util "github.com/bietkhonhungvandi212/flashbuf/internal/utils"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newGenerateConfigCommand(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config",
		Short: "Print the default configuration.",
		Long: `generate-config prints the default configuration to stdout
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := toml.Marshal(util.DefaultOptions())
			if err != nil {
				return errors.Wrap(err, "marshalling default config")
			}
			_, err = stdout.Write(buf)
			return err
		},
	}
}
