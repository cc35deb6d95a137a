/*
Package api holds the entry-point adapters of the contact page backend.

  - contacthandler: the request dispatcher and its chi HTTP binding
  - lambdahandler: API Gateway and Function URL events mapped onto the dispatcher
*/
package api
