package flags

import (
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/lambda-contact-page/common"
	"github.com/ruteri/lambda-contact-page/form"
	"github.com/ruteri/lambda-contact-page/httpserver"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	return &httpserver.HTTPServerConfig{
		ListenAddr:    listenAddr,
		MetricsAddr:   cCtx.String(MetricsAddrFlag.Name),
		Log:           logger,
		EnablePprof:   cCtx.Bool(PprofFlag.Name),
		DrainDuration: time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
	}
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"LISTEN_ADDR"},
}
var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"METRICS_ADDR"},
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

// Delivery

var ModeFlag = &cli.StringFlag{
	Name:    "mode",
	Value:   "email",
	Usage:   "delivery mode: 'email' sends through SES, 'queue' publishes to SQS",
	EnvVars: []string{"DELIVERY_MODE"},
}
var SESTargetFlag = &cli.StringFlag{
	Name:    "ses-target",
	Usage:   "comma separated e-mail recipients",
	EnvVars: []string{"SES_TARGET"},
}
var SESSenderFlag = &cli.StringFlag{
	Name:    "ses-sender",
	Usage:   "verified SES sender address",
	EnvVars: []string{"SES_SENDER"},
}
var SESRegionFlag = &cli.StringFlag{
	Name:    "ses-region",
	Usage:   "SES region, defaults to the AWS SDK region",
	EnvVars: []string{"SES_REGION"},
}
var SenderNameFlag = &cli.StringFlag{
	Name:    "sender-name",
	Usage:   "display name of the e-mail sender",
	EnvVars: []string{"SENDER_NAME"},
}
var LogOnlyDeliveryFlag = &cli.BoolFlag{
	Name:    "log-only-delivery",
	Usage:   "log submissions instead of e-mailing them (local development)",
	EnvVars: []string{"LOG_ONLY_DELIVERY"},
}
var QueueURLFlag = &cli.StringFlag{
	Name:    "queue-url",
	Usage:   "SQS queue URL for queue mode",
	EnvVars: []string{"QUEUE_URL", "SQS_QUEUE_URL"},
}
var AWSRegionFlag = &cli.StringFlag{
	Name:    "aws-region",
	Usage:   "AWS region for S3, SQS and KMS, defaults to the SDK chain",
	EnvVars: []string{"AWS_REGION"},
}
var AWSEndpointFlag = &cli.StringFlag{
	Name:    "aws-endpoint",
	Usage:   "override AWS endpoint (e.g. http://localhost:4566 for localstack)",
	EnvVars: []string{"AWS_ENDPOINT_URL"},
}

// Template

var TemplateLocationFlag = &cli.StringSliceFlag{
	Name:    "template-location",
	Usage:   "storage URIs holding the form page, tried in order (s3://bucket/prefix?region=.., file:///dir)",
	EnvVars: []string{"TEMPLATE_LOCATION"},
}
var S3BucketFlag = &cli.StringFlag{
	Name:    "s3-bucket",
	Usage:   "bucket holding the form page, used when no template location is given",
	EnvVars: []string{"S3_BUCKET"},
}
var S3KeyFlag = &cli.StringFlag{
	Name:    "s3-key",
	Value:   "index.html",
	Usage:   "key of the form page",
	EnvVars: []string{"S3_KEY", "FORM_NAME"},
}
var ContentRegionIDFlag = &cli.StringFlag{
	Name:    "content-region-id",
	Usage:   "id of the <main> element to replace, any <main> when empty",
	EnvVars: []string{"CONTENT_REGION_ID"},
}
var SuccessPageKeyFlag = &cli.StringFlag{
	Name:    "success-markup-key",
	Usage:   "key of an HTML fragment replacing the default success message",
	EnvVars: []string{"SUCCESS_MARKUP_KEY"},
}
var FailurePageKeyFlag = &cli.StringFlag{
	Name:    "failure-markup-key",
	Usage:   "key of an HTML fragment replacing the default failure message",
	EnvVars: []string{"FAILURE_MARKUP_KEY"},
}
var ErrorMarkupFlag = &cli.StringFlag{
	Name:    "error-markup",
	Usage:   "element inserted next to a field that failed validation",
	EnvVars: []string{"ERROR_MARKUP"},
}
var AnnotateAfterFlag = &cli.BoolFlag{
	Name:    "annotate-after",
	Usage:   "insert field errors after the field instead of before it",
	EnvVars: []string{"ANNOTATE_AFTER"},
}

// Form

var RequiredFieldsFlag = &cli.StringSliceFlag{
	Name:    "required-fields",
	Value:   cli.NewStringSlice("name", "email", "message"),
	Usage:   "fields that must be present and non-empty",
	EnvVars: []string{"REQUIRED_FIELDS"},
}
var OptionalFieldsFlag = &cli.StringSliceFlag{
	Name:    "optional-fields",
	Value:   cli.NewStringSlice("subject"),
	Usage:   "additional fields accepted from the form",
	EnvVars: []string{"OPTIONAL_FIELDS"},
}
var HoneypotFieldsFlag = &cli.StringSliceFlag{
	Name:    "honeypot-fields",
	Usage:   "hidden fields that must stay empty",
	EnvVars: []string{"HONEYPOT_FIELDS"},
}
var MaxFieldsFlag = &cli.IntFlag{
	Name:    "max-fields",
	Value:   form.DefaultMaxFields,
	Usage:   "maximum number of fields in a submission",
	EnvVars: []string{"MAX_FIELDS"},
}
var StrictIntakeFlag = &cli.BoolFlag{
	Name:    "strict-intake",
	Usage:   "reject malformed bodies instead of repairing them",
	EnvVars: []string{"STRICT_INTAKE"},
}
var KeepUnknownFieldsFlag = &cli.BoolFlag{
	Name:    "keep-unknown-fields",
	Usage:   "keep fields that are not in any configured field list",
	EnvVars: []string{"KEEP_UNKNOWN_FIELDS"},
}

// CAPTCHA and secrets

var CaptchaAPIFlag = &cli.StringFlag{
	Name:    "captcha-api",
	Usage:   "siteverify endpoint, Google reCAPTCHA when empty",
	EnvVars: []string{"CAPTCHA_API"},
}
var CaptchaDisabledFlag = &cli.BoolFlag{
	Name:    "disable-captcha",
	Usage:   "skip the CAPTCHA check",
	EnvVars: []string{"CAPTCHA_DISABLED"},
}
var CaptchaSecretNameFlag = &cli.StringFlag{
	Name:  "captcha-secret-name",
	Value: "CAPTCHA_SECRET",
	Usage: "environment variable or Vault field holding the CAPTCHA secret",
}
var CaptchaSecretEncryptedFlag = &cli.BoolFlag{
	Name:    "captcha-secret-encrypted",
	Value:   true,
	Usage:   "the CAPTCHA secret environment variable is base64 KMS ciphertext",
	EnvVars: []string{"CAPTCHA_SECRET_ENCRYPTED"},
}
var EncryptionContextFlag = &cli.BoolFlag{
	Name:    "encryption-context",
	Usage:   "send the Lambda function name as KMS encryption context",
	EnvVars: []string{"KMS_ENCRYPTION_CONTEXT"},
}
var VaultAddrFlag = &cli.StringFlag{
	Name:    "vault-addr",
	Usage:   "Vault address; enables the Vault secret resolver",
	EnvVars: []string{"VAULT_ADDR"},
}
var VaultTokenFlag = &cli.StringFlag{
	Name:    "vault-token",
	Usage:   "Vault token",
	EnvVars: []string{"VAULT_TOKEN"},
}
var VaultMountFlag = &cli.StringFlag{
	Name:    "vault-mount",
	Value:   "secret",
	Usage:   "Vault KV v2 mount",
	EnvVars: []string{"VAULT_MOUNT"},
}
var VaultPathFlag = &cli.StringFlag{
	Name:    "vault-path",
	Value:   "contact-page",
	Usage:   "secret path within the Vault mount",
	EnvVars: []string{"VAULT_SECRET_PATH"},
}

// Worker

var ArchiveLocationFlag = &cli.StringSliceFlag{
	Name:    "archive-location",
	Usage:   "storage URIs receiving processed submissions; checked at startup (S3 needs s3:ListBucket)",
	EnvVars: []string{"ARCHIVE_LOCATION"},
}

var AWSFlags = []cli.Flag{
	AWSRegionFlag,
	AWSEndpointFlag,
}

var SecretFlags = []cli.Flag{
	CaptchaSecretNameFlag,
	CaptchaSecretEncryptedFlag,
	EncryptionContextFlag,
	VaultAddrFlag,
	VaultTokenFlag,
	VaultMountFlag,
	VaultPathFlag,
}

var EmailFlags = []cli.Flag{
	SESTargetFlag,
	SESSenderFlag,
	SESRegionFlag,
	SenderNameFlag,
	LogOnlyDeliveryFlag,
}

// ContactFlags configure the dispatcher behind the Lambda and HTTP entry points.
var ContactFlags = slices.Concat(
	AWSFlags,
	EmailFlags,
	SecretFlags,
	[]cli.Flag{
		ModeFlag,
		QueueURLFlag,
		TemplateLocationFlag,
		S3BucketFlag,
		S3KeyFlag,
		ContentRegionIDFlag,
		SuccessPageKeyFlag,
		FailurePageKeyFlag,
		ErrorMarkupFlag,
		AnnotateAfterFlag,
		RequiredFieldsFlag,
		OptionalFieldsFlag,
		HoneypotFieldsFlag,
		MaxFieldsFlag,
		StrictIntakeFlag,
		KeepUnknownFieldsFlag,
		CaptchaAPIFlag,
		CaptchaDisabledFlag,
	},
)

// WorkerFlags configure the queue worker.
var WorkerFlags = slices.Concat(
	AWSFlags,
	EmailFlags,
	[]cli.Flag{
		ArchiveLocationFlag,
	},
)
