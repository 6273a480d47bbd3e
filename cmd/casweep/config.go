package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/casweep/pkg/casweep/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or edit the casweep configuration",
	Long: `The configuration file sets the solver variable, the study inputs,
the result table format, history retention and logging.

It is read from $XDG_CONFIG_HOME/casweep/config.yaml, falling back to
~/.config/casweep/config.yaml. Any key can be overridden from the
environment with the CASWEEP_ prefix, dots becoming underscores:

  CASWEEP_STUDY_INPUT=bwr_lattice.inp
  CASWEEP_OUTPUT_FORMAT=json
  CASWEEP_LOGGING_LEVEL=debug`,
}

func init() {
	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfigShow,
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Open the config file in $VISUAL or $EDITOR",
			Long: `Open the config file in $VISUAL, then $EDITOR, then vi.
A commented default file is written first when none exists.`,
			Args: cobra.NoArgs,
			RunE: runConfigEdit,
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the default config file",
			Args:  cobra.NoArgs,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE:  runConfigPath,
		},
	)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	out := cmd.OutOrStdout()
	source := viper.ConfigFileUsed()
	if source == "" {
		source = "(none, built-in defaults)"
	}
	fmt.Fprintf(out, "# source: %s\n", source)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	out.Write(data)

	if overrides := envOverrides(viper.AllKeys()); len(overrides) > 0 {
		fmt.Fprintln(out, "\n# environment overrides:")
		for _, kv := range overrides {
			fmt.Fprintf(out, "#   %s\n", kv)
		}
	}
	return nil
}

// envOverrides returns NAME=value for each CASWEEP_ variable that is set
// for one of keys, sorted by name.
func envOverrides(keys []string) []string {
	var set []string
	for _, key := range keys {
		name := "CASWEEP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if val, ok := os.LookupEnv(name); ok {
			set = append(set, name+"="+val)
		}
	}
	sort.Strings(set)
	return set
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path, err := config.WriteDefault()
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	editor := editorCommand(path, os.Stdin, cmd.OutOrStdout(), cmd.ErrOrStderr())
	printVerbose("Running %s", strings.Join(editor.Args, " "))
	if err := editor.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}

// editorCommand builds the command that opens path. $VISUAL and $EDITOR
// may carry arguments ("code --wait").
func editorCommand(path string, in io.Reader, out, errOut io.Writer) *exec.Cmd {
	line := "vi"
	for _, name := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			line = v
			break
		}
	}

	fields := strings.Fields(line)
	c := exec.Command(fields[0], append(fields[1:], path)...)
	c.Stdin, c.Stdout, c.Stderr = in, out, errOut
	return c
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	_, statErr := os.Stat(path)

	if _, err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	if statErr == nil {
		printInfo("%s already exists, left unchanged.", path)
		return nil
	}
	printInfo("Wrote %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path, err := config.ConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		printVerbose("%s does not exist; defaults apply", path)
	}
	return nil
}
