// Command queueworker is an AWS Lambda consuming the SQS queue filled in
// queue mode. Enable ReportBatchItemFailures on the event source mapping so
// only failed deliveries are retried.
package main

import (
	"log"
	"os"
	"slices"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/ruteri/lambda-contact-page/cmd/contactcommon"
	"github.com/ruteri/lambda-contact-page/cmd/flags"
	"github.com/ruteri/lambda-contact-page/common"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "contact-queue-worker",
		Usage: "Deliver queued contact submissions by e-mail",
		Flags: slices.Concat(
			flags.CommonFlags,
			[]cli.Flag{flags.LogServiceFlagFn(common.PackageName + "-worker")},
			flags.WorkerFlags,
		),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			w, err := contactcommon.SetupWorker(cCtx, logger)
			if err != nil {
				logger.Error("Failed to set up queue worker", "err", err)
				return err
			}

			lambda.Start(w.HandleSQSEvent)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
