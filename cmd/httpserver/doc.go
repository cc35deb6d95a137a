// Package main (cmd/httpserver) serves the contact form backend as a
// standalone HTTP server.
//
// Configuration comes from flags, each of which can also be set through the
// environment variables the Lambda deployment uses (S3_BUCKET, S3_KEY,
// SES_TARGET, SES_SENDER, SES_REGION, CAPTCHA_SECRET, CAPTCHA_API, ...). The
// template is fetched and parsed once at startup.
//
// Example usage for local development:
//
//	CAPTCHA_SECRET=test CAPTCHA_SECRET_ENCRYPTED=false \
//	contact-server --template-location file://./site --s3-key contact.html \
//	    --honeypot-fields website --listen-addr 0.0.0.0:8080 --log-only-delivery
//
// --log-only-delivery logs submissions instead of e-mailing them; without it
// --ses-target is required.
package main
