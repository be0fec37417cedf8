package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/router-for-me/CozeSDK/internal/cmd"
	"github.com/router-for-me/CozeSDK/internal/util"
	"github.com/router-for-me/CozeSDK/sdk/config"
	"github.com/router-for-me/CozeSDK/sdk/coze"
	"github.com/router-for-me/CozeSDK/sdk/logging"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
	envFile    string
	debug      bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "coze",
		Short:         "Talk to Coze bots and workflows from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			if err := godotenv.Load(flags.envFile); err != nil && c.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", flags.envFile, err)
			}
			loaded, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if flags.debug {
				loaded.Debug = true
			}
			logging.SetupBaseLogger()
			if err = logging.ConfigureLogOutput(loaded.LoggingToFile); err != nil {
				return err
			}
			util.SetLogLevel(loaded)
			log.Debugf("using API base %s", loaded.BaseURL)
			cfg = loaded
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "dotenv file with COZE_* variables")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	client := func() (*coze.Client, error) {
		return coze.New(cfg)
	}

	root.AddCommand(
		newChatCmd("chat", "Send a message and wait for the bot's answer", client, cmd.DoChat),
		newChatCmd("stream", "Send a message and stream the bot's answer", client, cmd.DoStream),
		newWorkflowCmd(client),
		newTokenCmd(client),
	)
	return root
}

type clientFunc func() (*coze.Client, error)

func newChatCmd(use, short string, client clientFunc, run func(context.Context, *coze.Client, cmd.ChatOptions, io.Writer) error) *cobra.Command {
	var opts cmd.ChatOptions
	c := &cobra.Command{
		Use:   use + " MESSAGE...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cz, err := client()
			if err != nil {
				return err
			}
			opts.Message = strings.Join(args, " ")
			return run(c.Context(), cz, opts, c.OutOrStdout())
		},
	}
	c.Flags().StringVar(&opts.BotID, "bot", "", "bot id")
	c.Flags().StringVar(&opts.UserID, "user", "", "user id, generated per bot when empty")
	c.Flags().StringVar(&opts.ConversationID, "conversation", "", "existing conversation id")
	_ = c.MarkFlagRequired("bot")
	return c
}

func newWorkflowCmd(client clientFunc) *cobra.Command {
	var opts cmd.WorkflowOptions
	c := &cobra.Command{
		Use:   "workflow",
		Short: "Run a published workflow",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cz, err := client()
			if err != nil {
				return err
			}
			return cmd.DoWorkflow(c.Context(), cz, opts, c.OutOrStdout())
		},
	}
	c.Flags().StringVar(&opts.WorkflowID, "id", "", "workflow id")
	c.Flags().StringVar(&opts.Parameters, "params", "", "workflow parameters as a JSON object")
	c.Flags().BoolVar(&opts.Stream, "stream", false, "stream node output")
	_ = c.MarkFlagRequired("id")
	return c
}

func newTokenCmd(client clientFunc) *cobra.Command {
	var reveal bool
	c := &cobra.Command{
		Use:   "token",
		Short: "Obtain an access token with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			cz, err := client()
			if err != nil {
				return err
			}
			return cmd.DoToken(c.Context(), cz, reveal, c.OutOrStdout())
		},
	}
	c.Flags().BoolVar(&reveal, "reveal", false, "print the token unmasked")
	return c
}
