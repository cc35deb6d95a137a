package contactcommon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/ruteri/lambda-contact-page/api/contacthandler"
	"github.com/ruteri/lambda-contact-page/captcha"
	"github.com/ruteri/lambda-contact-page/cmd/flags"
	"github.com/ruteri/lambda-contact-page/common"
	"github.com/ruteri/lambda-contact-page/config"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/ruteri/lambda-contact-page/notify"
	"github.com/ruteri/lambda-contact-page/page"
	"github.com/ruteri/lambda-contact-page/secrets"
	"github.com/ruteri/lambda-contact-page/storage"
	"github.com/ruteri/lambda-contact-page/worker"
	"github.com/urfave/cli/v2"
)

// SetupDispatcher resolves configuration and secrets, fetches the form page
// and wires the delivery backend. Any failure here is fatal: the function
// would answer every request with a failure page.
func SetupDispatcher(cCtx *cli.Context, logger *slog.Logger) (*contacthandler.Dispatcher, error) {
	ctx := cCtx.Context

	sess, err := common.NewAWSSession(cCtx.String(flags.AWSRegionFlag.Name), cCtx.String(flags.AWSEndpointFlag.Name))
	if err != nil {
		return nil, err
	}

	resolver, err := SetupResolver(cCtx, sess, logger)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(ctx, cCtx, resolver)
	if err != nil {
		return nil, err
	}

	tmpl, err := LoadTemplate(ctx, cCtx, logger)
	if err != nil {
		return nil, err
	}

	var verifier interfaces.CaptchaVerifier
	if !cfg.CaptchaDisabled {
		verifier = captcha.NewRecaptchaVerifier(cCtx.String(flags.CaptchaAPIFlag.Name), nil, logger)
	}

	var notifier interfaces.Notifier
	var queue interfaces.Queue
	switch cfg.Mode {
	case config.ModeEmail:
		notifier, err = SetupNotifier(cCtx, sess, logger)
	case config.ModeQueue:
		queue, err = SetupQueue(cCtx, sess, logger)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Contact dispatcher configured",
		slog.String("mode", string(cfg.Mode)),
		slog.Bool("captcha", !cfg.CaptchaDisabled),
		slog.Any("requiredFields", cfg.RequiredFields),
		slog.Any("honeypotFields", cfg.HoneypotFields))

	return contacthandler.NewDispatcher(cfg, tmpl, verifier, notifier, queue, logger)
}

// SetupResolver chains the environment (with KMS decryption) and, when an
// address is configured, Vault.
func SetupResolver(cCtx *cli.Context, sess *session.Session, logger *slog.Logger) (interfaces.ConfigResolver, error) {
	opts := secrets.EnvResolverOpts{KMS: kms.New(sess)}
	if cCtx.Bool(flags.EncryptionContextFlag.Name) {
		opts.FunctionName = os.Getenv("AWS_LAMBDA_FUNCTION_NAME")
	}
	chain := secrets.ChainResolver{secrets.NewEnvResolver(opts, logger)}

	if addr := cCtx.String(flags.VaultAddrFlag.Name); addr != "" {
		vault, err := secrets.NewVaultResolver(
			addr,
			cCtx.String(flags.VaultTokenFlag.Name),
			cCtx.String(flags.VaultMountFlag.Name),
			cCtx.String(flags.VaultPathFlag.Name),
			logger,
		)
		if err != nil {
			return nil, err
		}
		chain = append(chain, vault)
	}
	return chain, nil
}

// LoadConfig builds the validated form configuration from flags and the CAPTCHA secret.
func LoadConfig(ctx context.Context, cCtx *cli.Context, resolver interfaces.ConfigResolver) (*config.Config, error) {
	mode, err := config.ParseMode(cCtx.String(flags.ModeFlag.Name))
	if err != nil {
		return nil, interfaces.NewConfigurationError("invalid delivery mode", err)
	}

	cfg := config.Default()
	cfg.Mode = mode
	cfg.RequiredFields = cCtx.StringSlice(flags.RequiredFieldsFlag.Name)
	cfg.OptionalFields = cCtx.StringSlice(flags.OptionalFieldsFlag.Name)
	cfg.HoneypotFields = cCtx.StringSlice(flags.HoneypotFieldsFlag.Name)
	cfg.MaxFields = cCtx.Int(flags.MaxFieldsFlag.Name)
	cfg.StrictIntake = cCtx.Bool(flags.StrictIntakeFlag.Name)
	cfg.FilterUnknownFields = !cCtx.Bool(flags.KeepUnknownFieldsFlag.Name)
	cfg.SenderName = cCtx.String(flags.SenderNameFlag.Name)
	cfg.CaptchaDisabled = cCtx.Bool(flags.CaptchaDisabledFlag.Name)

	if !cfg.CaptchaDisabled {
		name := cCtx.String(flags.CaptchaSecretNameFlag.Name)
		cfg.CaptchaSecret, err = resolver.Resolve(ctx, name, cCtx.Bool(flags.CaptchaSecretEncryptedFlag.Name))
		if err != nil {
			return nil, interfaces.NewConfigurationError("failed to resolve CAPTCHA secret", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, interfaces.NewConfigurationError("invalid form configuration", err)
	}
	return &cfg, nil
}

// TemplateLocations returns the configured template locations, falling back
// to the S3 bucket flag.
func TemplateLocations(cCtx *cli.Context) ([]interfaces.StorageBackendLocation, error) {
	uris := cCtx.StringSlice(flags.TemplateLocationFlag.Name)
	if len(uris) == 0 {
		bucket := cCtx.String(flags.S3BucketFlag.Name)
		if bucket == "" {
			return nil, interfaces.NewConfigurationError("no template location", errors.New("set --template-location or S3_BUCKET"))
		}
		uris = []string{s3URI(bucket, cCtx.String(flags.AWSRegionFlag.Name), cCtx.String(flags.AWSEndpointFlag.Name))}
	}
	return parseLocations(uris)
}

func s3URI(bucket, region, endpoint string) string {
	uri := "s3://" + bucket
	sep := "?"
	if region != "" {
		uri += sep + "region=" + region
		sep = "&"
	}
	if endpoint != "" {
		uri += sep + "endpoint=" + endpoint
	}
	return uri
}

func parseLocations(uris []string) ([]interfaces.StorageBackendLocation, error) {
	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		loc, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// LoadTemplate fetches and parses the form page, together with any
// replacement success and failure fragments stored next to it.
func LoadTemplate(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (*page.Template, error) {
	locations, err := TemplateLocations(cCtx)
	if err != nil {
		return nil, err
	}
	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
	if err != nil {
		return nil, interfaces.NewConfigurationError("no usable template storage", err)
	}

	key := cCtx.String(flags.S3KeyFlag.Name)
	raw, err := backend.Fetch(ctx, key)
	if err != nil {
		return nil, interfaces.NewConfigurationError(fmt.Sprintf("failed to fetch template %s", key), err)
	}

	opts := page.Options{
		RegionID:      cCtx.String(flags.ContentRegionIDFlag.Name),
		ErrorMarkup:   cCtx.String(flags.ErrorMarkupFlag.Name),
		AnnotateAfter: cCtx.Bool(flags.AnnotateAfterFlag.Name),
	}
	if opts.SuccessMarkup, err = fetchOptional(ctx, backend, cCtx.String(flags.SuccessPageKeyFlag.Name)); err != nil {
		return nil, err
	}
	if opts.FailureMarkup, err = fetchOptional(ctx, backend, cCtx.String(flags.FailurePageKeyFlag.Name)); err != nil {
		return nil, err
	}

	tmpl, err := page.NewTemplate(raw, opts)
	if err != nil {
		return nil, interfaces.NewConfigurationError("invalid template", err)
	}
	logger.Info("Template loaded", slog.String("key", key), slog.String("backend", backend.Name()), slog.Int("size", len(raw)))
	return tmpl, nil
}

func fetchOptional(ctx context.Context, backend interfaces.StorageBackend, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	data, err := backend.Fetch(ctx, key)
	if err != nil {
		return "", interfaces.NewConfigurationError(fmt.Sprintf("failed to fetch %s", key), err)
	}
	return string(data), nil
}

// SetupNotifier returns an SES notifier. Missing recipients are a
// configuration error unless log-only delivery was explicitly requested.
func SetupNotifier(cCtx *cli.Context, sess *session.Session, logger *slog.Logger) (interfaces.Notifier, error) {
	if cCtx.Bool(flags.LogOnlyDeliveryFlag.Name) {
		logger.Warn("Log-only delivery enabled, submissions will not be e-mailed")
		return notify.NewLogNotifier(logger), nil
	}

	recipients := notify.ParseRecipients(cCtx.String(flags.SESTargetFlag.Name))
	if len(recipients) == 0 {
		return nil, interfaces.NewConfigurationError("no SES recipients configured", errors.New("set --ses-target or SES_TARGET"))
	}

	cfg := aws.NewConfig()
	if region := cCtx.String(flags.SESRegionFlag.Name); region != "" {
		cfg = cfg.WithRegion(region)
	}
	return notify.NewSESNotifier(ses.New(sess, cfg), cCtx.String(flags.SESSenderFlag.Name), recipients, logger)
}

func SetupQueue(cCtx *cli.Context, sess *session.Session, logger *slog.Logger) (interfaces.Queue, error) {
	queueURL := cCtx.String(flags.QueueURLFlag.Name)
	if queueURL == "" {
		return nil, interfaces.NewConfigurationError("queue mode requires a queue URL", errors.New("set --queue-url or QUEUE_URL"))
	}
	return notify.NewSQSQueue(sqs.New(sess), queueURL, logger), nil
}

// SetupWorker wires the queue worker: SES delivery and the optional archive.
func SetupWorker(cCtx *cli.Context, logger *slog.Logger) (*worker.Worker, error) {
	sess, err := common.NewAWSSession(cCtx.String(flags.AWSRegionFlag.Name), cCtx.String(flags.AWSEndpointFlag.Name))
	if err != nil {
		return nil, err
	}

	notifier, err := SetupNotifier(cCtx, sess, logger)
	if err != nil {
		return nil, err
	}

	var archive interfaces.StorageBackend
	if uris := cCtx.StringSlice(flags.ArchiveLocationFlag.Name); len(uris) > 0 {
		locations, err := parseLocations(uris)
		if err != nil {
			return nil, err
		}
		archive, err = storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
		if err != nil {
			return nil, err
		}
		// Archive failures are only logged per record, so catch an unreachable archive here.
		if !archive.Available(cCtx.Context) {
			return nil, interfaces.NewConfigurationError("archive storage unavailable", fmt.Errorf("%w: %s", interfaces.ErrBackendUnavailable, archive.LocationURI()))
		}
		logger.Info("Archiving processed submissions", slog.String("backend", archive.Name()))
	}

	cfg := config.Default()
	cfg.SenderName = cCtx.String(flags.SenderNameFlag.Name)
	return worker.New(notifier, cfg.ComposeOpts(), archive, logger), nil
}
