package contactcommon

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruteri/lambda-contact-page/cmd/flags"
	"github.com/ruteri/lambda-contact-page/common"
	"github.com/ruteri/lambda-contact-page/config"
	"github.com/ruteri/lambda-contact-page/interfaces"
	"github.com/ruteri/lambda-contact-page/notify"
	"github.com/ruteri/lambda-contact-page/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// runWith runs action under a cli app carrying the contact flags.
func runWith(t *testing.T, args []string, action cli.ActionFunc) {
	t.Helper()
	app := &cli.App{
		Name:   "test",
		Flags:  flags.ContactFlags,
		Action: action,
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
}

func TestLoadConfig(t *testing.T) {
	resolver := secrets.Static{"CAPTCHA_SECRET": "s3cret"}

	runWith(t, []string{"--honeypot-fields", "website", "--mode", "queue"}, func(cCtx *cli.Context) error {
		cfg, err := LoadConfig(cCtx.Context, cCtx, resolver)
		require.NoError(t, err)
		assert.Equal(t, config.ModeQueue, cfg.Mode)
		assert.Equal(t, "s3cret", cfg.CaptchaSecret)
		assert.Equal(t, []string{"website"}, cfg.HoneypotFields)
		assert.Equal(t, []string{"name", "email", "message"}, cfg.RequiredFields)
		assert.True(t, cfg.FilterUnknownFields)
		return nil
	})

	t.Run("missing secret", func(t *testing.T) {
		runWith(t, nil, func(cCtx *cli.Context) error {
			_, err := LoadConfig(cCtx.Context, cCtx, secrets.Static{})
			assert.True(t, interfaces.IsKind(err, interfaces.KindConfiguration))
			assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
			return nil
		})
	})

	t.Run("captcha disabled", func(t *testing.T) {
		runWith(t, []string{"--disable-captcha"}, func(cCtx *cli.Context) error {
			cfg, err := LoadConfig(cCtx.Context, cCtx, secrets.Static{})
			require.NoError(t, err)
			assert.True(t, cfg.CaptchaDisabled)
			return nil
		})
	})

	t.Run("bad mode", func(t *testing.T) {
		runWith(t, []string{"--mode", "carrier-pigeon"}, func(cCtx *cli.Context) error {
			_, err := LoadConfig(cCtx.Context, cCtx, resolver)
			assert.True(t, interfaces.IsKind(err, interfaces.KindConfiguration))
			return nil
		})
	})
}

func TestLoadTemplate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "contact.html"), []byte(`<html><body><main id="content"><form></form></main></body></html>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thanks.html"), []byte(`<p>Cheers!</p>`), 0o644))

	args := []string{
		"--template-location", "file://" + dir,
		"--s3-key", "contact.html",
		"--success-markup-key", "thanks.html",
		"--content-region-id", "content",
	}
	runWith(t, args, func(cCtx *cli.Context) error {
		tmpl, err := LoadTemplate(cCtx.Context, cCtx, logger)
		require.NoError(t, err)
		assert.Equal(t, "<p>Cheers!</p>", tmpl.Options().SuccessMarkup)

		p := tmpl.NewPage()
		require.NoError(t, p.Success())
		assert.Contains(t, string(p.Body()), "Cheers!")
		return nil
	})

	t.Run("missing key", func(t *testing.T) {
		runWith(t, []string{"--template-location", "file://" + dir, "--s3-key", "missing.html"}, func(cCtx *cli.Context) error {
			_, err := LoadTemplate(cCtx.Context, cCtx, logger)
			assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
			return nil
		})
	})

	t.Run("no location", func(t *testing.T) {
		runWith(t, nil, func(cCtx *cli.Context) error {
			_, err := LoadTemplate(cCtx.Context, cCtx, logger)
			assert.True(t, interfaces.IsKind(err, interfaces.KindConfiguration))
			return nil
		})
	})
}

func TestTemplateLocationsFromBucket(t *testing.T) {
	runWith(t, []string{"--s3-bucket", "site", "--aws-region", "eu-west-1"}, func(cCtx *cli.Context) error {
		locations, err := TemplateLocations(cCtx)
		require.NoError(t, err)
		require.Len(t, locations, 1)
		assert.True(t, locations[0].IsS3())
		assert.Equal(t, "site", locations[0].Host)
		assert.Equal(t, "eu-west-1", locations[0].GetParam("region"))
		return nil
	})
}

func TestSetupNotifier(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sess, err := common.NewAWSSession("us-east-1", "")
	require.NoError(t, err)

	t.Run("missing recipients", func(t *testing.T) {
		runWith(t, []string{"--ses-target", ""}, func(cCtx *cli.Context) error {
			n, err := SetupNotifier(cCtx, sess, logger)
			assert.Nil(t, n)
			assert.True(t, interfaces.IsKind(err, interfaces.KindConfiguration))
			return nil
		})
	})

	t.Run("ses", func(t *testing.T) {
		runWith(t, []string{"--ses-target", "a@example.com,b@example.com", "--ses-sender", "web@example.com"}, func(cCtx *cli.Context) error {
			n, err := SetupNotifier(cCtx, sess, logger)
			require.NoError(t, err)
			assert.IsType(t, &notify.SESNotifier{}, n)
			return nil
		})
	})

	t.Run("log only", func(t *testing.T) {
		runWith(t, []string{"--log-only-delivery"}, func(cCtx *cli.Context) error {
			n, err := SetupNotifier(cCtx, sess, logger)
			require.NoError(t, err)
			assert.IsType(t, &notify.LogNotifier{}, n)
			return nil
		})
	})
}

func TestSetupWorkerRequiresRecipients(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app := &cli.App{
		Name:  "test",
		Flags: flags.WorkerFlags,
		Action: func(cCtx *cli.Context) error {
			w, err := SetupWorker(cCtx, logger)
			assert.Nil(t, w)
			assert.True(t, interfaces.IsKind(err, interfaces.KindConfiguration))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"test", "--aws-region", "us-east-1", "--ses-target", ""}))
}

func TestSetupWorkerArchive(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	run := func(t *testing.T, archive string, check func(w any, err error)) {
		t.Helper()
		app := &cli.App{
			Name:  "test",
			Flags: flags.WorkerFlags,
			Action: func(cCtx *cli.Context) error {
				w, err := SetupWorker(cCtx, logger)
				check(w, err)
				return nil
			},
		}
		require.NoError(t, app.Run([]string{"test", "--aws-region", "us-east-1", "--log-only-delivery", "--archive-location", archive}))
	}

	t.Run("available", func(t *testing.T) {
		run(t, "file://"+t.TempDir(), func(w any, err error) {
			require.NoError(t, err)
			assert.NotNil(t, w)
		})
	})

	t.Run("unreachable", func(t *testing.T) {
		run(t, "s3://AKID:SECRET@archive?region=us-east-1&endpoint=http://127.0.0.1:1", func(w any, err error) {
			assert.True(t, interfaces.IsKind(err, interfaces.KindConfiguration))
			assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
		})
	})
}
