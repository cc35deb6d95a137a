package main

import (
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/ruteri/lambda-contact-page/api/contacthandler"
	"github.com/ruteri/lambda-contact-page/cmd/contactcommon"
	"github.com/ruteri/lambda-contact-page/cmd/flags"
	"github.com/ruteri/lambda-contact-page/common"
	"github.com/ruteri/lambda-contact-page/httpserver"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "contact-server",
		Usage: "Serve the contact form backend over HTTP",
		Flags: slices.Concat(
			flags.CommonFlags,
			[]cli.Flag{flags.LogServiceFlagFn(common.PackageName)},
			flags.ServerFlags,
			flags.ContactFlags,
		),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			dispatcher, err := contactcommon.SetupDispatcher(cCtx, logger)
			if err != nil {
				logger.Error("Failed to set up contact dispatcher", "err", err)
				return err
			}

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
			server := httpserver.New(cfg, contacthandler.NewHandler(dispatcher, logger))
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
