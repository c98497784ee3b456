package commands

import (
	"surveylogic/internal/apis/builder"
	"surveylogic/internal/components/telemetry"
	"surveylogic/internal/logic"
	"surveylogic/pkg/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var servePort int

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "port to listen on, overrides server.port")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the logic builder http api.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig(configPath, false)
		if err != nil {
			return err
		}
		port := config.Server.Port
		if servePort > 0 {
			port = servePort
		}

		tel := telemetry.SlogAPI{}
		store := logic.NewStore(
			config.Server.MaxSessions,
			time.Duration(config.Server.SessionTtlMinutes)*time.Minute,
		)
		router := builder.NewRouter(builder.NewHandler(store, tel), tel)

		telemetry.InstrumentPerfStats(cmd.Context())
		return serviceutil.StartHttpServer(cmd.Context(), port, router)
	},
}
