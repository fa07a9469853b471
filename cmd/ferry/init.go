package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mgrewal/ferry"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long: `Create a ferry config file interactively.

You will be prompted for:
  - Storage root directory
  - Server port
  - Server mode (store, static, spa)
  - Streaming chunk size

The file is written as YAML to the path given by --config
(default: ./config.yaml). An existing file is only overwritten
after confirmation.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// initFileConfig is the YAML shape written by ferry init. It mirrors the
// keys read by the config package.
type initFileConfig struct {
	Server struct {
		Port int    `yaml:"port"`
		Mode string `yaml:"mode"`
	} `yaml:"server"`
	Storage struct {
		Root string `yaml:"root"`
	} `yaml:"storage"`
	Stream struct {
		ChunkSize int `yaml:"chunk_size"`
	} `yaml:"stream"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func runInit(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = "config.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("File '%s' already exists. Overwrite it", configPath),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	var cfg initFileConfig

	rootPrompt := promptui.Prompt{
		Label:   "Storage root directory",
		Default: "./public",
	}
	root, err := rootPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt root: %w", err)
	}
	cfg.Storage.Root = root

	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: "5710",
		Validate: func(s string) error {
			p, convErr := strconv.Atoi(s)
			if convErr != nil || p < 1 || p > 65535 {
				return errors.New("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	modeSelect := promptui.Select{
		Label: "Server mode",
		Items: []string{"static", "spa", "store"},
	}
	_, modeStr, err := modeSelect.Run()
	if err != nil {
		return fmt.Errorf("prompt mode: %w", err)
	}
	if _, err := ferry.ParseServerMode(modeStr); err != nil {
		return err
	}
	cfg.Server.Mode = modeStr

	chunkPrompt := promptui.Prompt{
		Label:   "Streaming chunk size (bytes)",
		Default: strconv.Itoa(ferry.DefaultChunkSize),
		Validate: func(s string) error {
			n, convErr := strconv.Atoi(s)
			if convErr != nil || n < 1 {
				return errors.New("chunk size must be a positive number")
			}
			return nil
		},
	}
	chunkStr, err := chunkPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt chunk size: %w", err)
	}
	cfg.Stream.ChunkSize, _ = strconv.Atoi(chunkStr)

	cfg.Log.Level = "info"

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", configPath)
	return nil
}
