// Package lambdahandler exposes the contact dispatcher as an AWS Lambda
// function behind API Gateway or a function URL.
package lambdahandler
