package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pitchsync/internal/config"
	"pitchsync/internal/paths"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the project configuration",
	}
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigInitCmd())
	return cmd
}

var (
	showFormat  string
	initFormat  string
	configForce bool
)

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE:  runConfigShow,
	}
	cmd.Flags().StringVar(&showFormat, "format", "", "yaml or toml (default: format of the config file)")
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file into the project",
		RunE:  runConfigInit,
	}
	cmd.Flags().StringVar(&initFormat, "format", "yaml", "yaml or toml")
	cmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	return cmd
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return err
	}
	if outputJSON {
		return writeJSON(cmd.OutOrStdout(), cfg)
	}

	var data []byte
	switch strings.ToLower(strings.TrimSpace(showFormat)) {
	case "":
		data, err = cfg.MarshalFor(pp.ConfigFile)
	case "yaml", "yml":
		data, err = cfg.Marshal()
	case "toml":
		data, err = cfg.MarshalTOML()
	default:
		return fmt.Errorf("unknown format %q (expected yaml or toml)", showFormat)
	}
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}

	var name string
	switch strings.ToLower(strings.TrimSpace(initFormat)) {
	case "yaml", "yml", "":
		name = "pitchsync.yaml"
	case "toml":
		name = "pitchsync.toml"
	default:
		return fmt.Errorf("unknown format %q (expected yaml or toml)", initFormat)
	}

	if ok, _ := paths.FileExists(pp.ConfigFile); ok && !configForce {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", pp.ConfigFile)
	}
	target := filepath.Join(pp.Root, name)
	if err := os.MkdirAll(pp.Root, 0o755); err != nil {
		return fmt.Errorf("ensure project dir: %w", err)
	}

	data, err := config.Default().MarshalFor(target)
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if target != pp.ConfigFile {
		if err := os.Remove(pp.ConfigFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove previous config: %w", err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
	return nil
}
