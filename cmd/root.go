package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Loan-Origination/pkg/config"
	logx "github.com/tanpawarit/Chative-Loan-Origination/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "loanagent",
	Short: "Conversational personal-loan origination service",
	Long: `loanagent runs a multi-role loan conversation: greeting, sales,
verification, underwriting and sanction, over HTTP or an interactive shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)
		// Re-read LOG_* now that the env file is known.
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		logx.Init(*logCfg)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")
	rootCmd.AddCommand(serveCmd, chatCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
