// Command lambda runs the contact form backend as an AWS Lambda behind API
// Gateway (REST or HTTP API). Set FUNCTION_URL=true to serve Lambda Function
// URL events instead.
package main

import (
	"log"
	"os"
	"slices"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/ruteri/lambda-contact-page/api/lambdahandler"
	"github.com/ruteri/lambda-contact-page/cmd/contactcommon"
	"github.com/ruteri/lambda-contact-page/cmd/flags"
	"github.com/ruteri/lambda-contact-page/common"
	"github.com/urfave/cli/v2"
)

var functionURLFlag = &cli.BoolFlag{
	Name:    "function-url",
	Usage:   "handle Lambda Function URL events instead of API Gateway proxy events",
	EnvVars: []string{"FUNCTION_URL"},
}

func main() {
	app := &cli.App{
		Name:  "contact-lambda",
		Usage: "Contact form Lambda handler",
		Flags: slices.Concat(
			flags.CommonFlags,
			[]cli.Flag{flags.LogServiceFlagFn(common.PackageName), functionURLFlag},
			flags.ContactFlags,
		),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			dispatcher, err := contactcommon.SetupDispatcher(cCtx, logger)
			if err != nil {
				logger.Error("Failed to set up contact dispatcher", "err", err)
				return err
			}

			handler := lambdahandler.NewHandler(dispatcher, logger)
			if cCtx.Bool(functionURLFlag.Name) {
				lambda.Start(handler.HandleFunctionURL)
			} else {
				lambda.Start(handler.Handle)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
