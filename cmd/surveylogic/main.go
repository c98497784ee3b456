package main

import (
	"context"
	"log/slog"
	"surveylogic/cmd/surveylogic/commands"
	"surveylogic/internal/components/telemetry"
	"surveylogic/pkg/serviceutil"
)

func main() {
	ctx := serviceutil.SignalContext()

	otel, err := telemetry.SetupFromEnv(ctx, "surveylogic")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownErr := otel.Shutdown(context.Background())
	if shutdownErr != nil {
		slog.Warn("failed to shutdown telemetry", "err", shutdownErr.Error())
	}
	if err != nil {
		serviceutil.Fatal("command failed", err)
	}
}
