// Package contacthandler turns contact form posts into response pages.
//
// The Dispatcher runs the pipeline: form intake, validation, then delivery by
// e-mail or onto a queue depending on the configured mode. Every outcome maps
// to a page rendered from the site template and an HTTP status:
//
//	success              200  success message
//	spam                 200  success message, nothing delivered
//	not_delivered        200  success message, log-only delivery (local runs)
//	invalid              400  the form, repopulated and annotated
//	malformed            400  failure message
//	delivery_failure     500  failure message
//	configuration_error  500  failure message
//	error                500  failure message
//
// Handler binds the dispatcher to chi routes; the Lambda adapter in
// api/lambdahandler binds it to API Gateway events.
package contacthandler
