// Package interfaces defines the narrow collaborator contracts of the contact
// page backend together with its shared error taxonomy.
//
// Every network-facing dependency of the pipeline (secret lookup, template
// storage, CAPTCHA verification, e-mail delivery and queue publication) is a
// single synchronous call behind one of these interfaces, so the dispatcher can
// be exercised with testify mocks.
//
// # Errors
//
// FormError is the one tagged error type of the pipeline. Its Kind tells the
// dispatcher how to recover:
//
//   - KindValidation: re-render the form, repopulated and annotated with Fields
//   - KindSpam: log, never reveal which honeypot fired
//   - KindDelivery, KindConfiguration, KindUnclassified: generic failure page
package interfaces
