package prover

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretspb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// ResolveAPIKey returns the proving-backend credential for a config: the
// literal APIKey, or, when APIKeySecretName is set, the latest version of
// that secret from GCP Secret Manager. Keeping the credential out of the
// environment matters when the host running the prover is shared.
func ResolveAPIKey(ctx context.Context, cfg Config) (string, error) {
	if cfg.APIKeySecretName == "" {
		return cfg.APIKey, nil
	}
	if cfg.APIKeySecretProject == "" {
		return "", fmt.Errorf("APIKeySecretName set without APIKeySecretProject")
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create secret manager client: %v", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx, &secretspb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
			cfg.APIKeySecretProject, cfg.APIKeySecretName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %v", cfg.APIKeySecretName, err)
	}

	return strings.TrimSpace(string(resp.Payload.GetData())), nil
}
