// Package secrets resolves configuration values and secrets at startup.
//
// EnvResolver reads environment variables and decrypts KMS ciphertext (the
// format produced by the Lambda console encryption helpers). VaultResolver reads
// fields of a HashiCorp Vault KV v2 secret. ChainResolver combines them.
package secrets
