package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/lambda-contact-page/interfaces"
)

// VaultResolver resolves values from fields of a single Vault KV v2 secret.
type VaultResolver struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       *slog.Logger
}

// NewVaultResolver creates a resolver reading <mountPath>/data/<dataPath>.
// An empty token falls back to VAULT_TOKEN.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token
//   - mountPath: KV v2 mount (e.g. "secret")
//   - dataPath: secret path within the mount (e.g. "contact-page")
func NewVaultResolver(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultResolver, error) {
	config := api.DefaultConfig()
	if address != "" {
		config.Address = address
	}
	config.Timeout = 30 * time.Second
	config.MaxRetries = 0

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return &VaultResolver{
		client:    client,
		mountPath: strings.Trim(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
		log:       log,
	}, nil
}

// Resolve implements interfaces.ConfigResolver. Vault values are already
// protected, so encrypted is ignored.
func (r *VaultResolver) Resolve(ctx context.Context, name string, _ bool) (string, error) {
	path := fmt.Sprintf("%s/data/%s", r.mountPath, r.dataPath)

	secret, err := r.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		r.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return "", fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("%w: vault secret %s", interfaces.ErrContentNotFound, path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: vault secret %s has no data", interfaces.ErrContentNotFound, path)
	}

	value, ok := data[name]
	if !ok {
		return "", fmt.Errorf("%w: field %s in vault secret %s", interfaces.ErrContentNotFound, name, path)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("field %s in vault secret %s is not a string", name, path)
	}

	r.log.Debug("Resolved value from Vault", slog.String("path", path), slog.String("name", name))
	return str, nil
}

var _ interfaces.ConfigResolver = (*VaultResolver)(nil)
