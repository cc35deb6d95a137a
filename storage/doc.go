// Package storage provides keyed object storage with pluggable backends.
//
// It holds the template page fetched at cold start and, in queue mode, the
// archive of processed submissions:
//
//   - File system storage for local development and testing
//   - S3-compatible storage for cloud deployments
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/www/contact/
//   - s3://bucket-name/prefix/?region=us-west-2
//   - s3://ACCESS_KEY:SECRET_KEY@bucket-name/?endpoint=http://localhost:9000
//
// S3 locations without embedded credentials use the default AWS credential
// chain (the Lambda execution role, environment or shared config).
//
// # Multiple Backends
//
// MultiStorageBackend fetches from the first backend that has the key and
// stores to every available backend, so a template can be served from a local
// directory with S3 as fallback.
//
// # Keys
//
// Keys are slash separated object names. They are appended to the location's
// prefix (S3) or base directory (file) and may not escape it.
package storage
