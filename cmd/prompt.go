package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/donation-matcher/internal/logger"
	"github.com/spigell/donation-matcher/internal/match"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that would be sent for a request file",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			log.Fatalf("creating a logger: %s", err)
		}

		config, err := getConfig()
		if err != nil {
			logger.Fatal("getting a config", zap.Error(err))
		}

		file, _ := cmd.Flags().GetString("file")
		rendered, err := renderPrompt(config.Match, file)
		if err != nil {
			logger.Fatal("rendering prompt", zap.String("file", file), zap.Error(err))
		}

		fmt.Fprint(cmd.OutOrStdout(), rendered)
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)

	promptCmd.Flags().StringP("file", "f", "", "request file in the getBest JSON format")
	promptCmd.MarkFlagRequired("file")
}

func renderPrompt(cfg *MatchConfig, file string) (string, error) {
	payload, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}

	req, err := match.ParseRequest(payload)
	if err != nil {
		return "", err
	}

	builder, err := newPromptBuilder(cfg)
	if err != nil {
		return "", err
	}

	return builder.Render(req), nil
}
