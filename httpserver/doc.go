/*
Package httpserver runs the contact pipeline as a long-lived HTTP service.

It is meant for local development and container deployments; Lambda
deployments use package lambdahandler instead.

# Endpoints

  - POST / and POST /contact: form submission, answered with an HTML page
  - GET /livez: liveness probe
  - GET /readyz: readiness probe, 503 while draining
  - GET /drain, GET /undrain: toggle readiness ahead of a shutdown
  - /debug/pprof: only with EnablePprof

Every route except pprof goes through the flashbots httplogger access log
middleware. Prometheus metrics are served by a separate listener on
MetricsAddr when it is set.
*/
package httpserver
