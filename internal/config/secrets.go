package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	vault "github.com/hashicorp/vault/api"
)

// Secret references keep the enrichment DSN out of semshift.yaml:
// ${ENV:NAME}, ${VAULT:path#key}, and ${AWS_SM:name} are swapped for
// the stored value when the file is loaded.
var secretProviders = map[string]func(string) (string, error){
	"ENV":    envSecret,
	"VAULT":  vaultSecret,
	"AWS_SM": awsSecret,
}

func envSecret(name string) (string, error) {
	if v := os.Getenv(name); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("environment variable %s is empty or unset", name)
}

// vaultSecret reads path#key from HashiCorp Vault, addressed and
// authenticated through VAULT_ADDR and VAULT_TOKEN. KV v2 responses
// nest the payload under a "data" key.
func vaultSecret(ref string) (string, error) {
	path, key, found := strings.Cut(ref, "#")
	if !found || path == "" || key == "" {
		return "", fmt.Errorf("malformed reference %q, want path#key", ref)
	}
	for _, env := range []string{"VAULT_ADDR", "VAULT_TOKEN"} {
		if os.Getenv(env) == "" {
			return "", fmt.Errorf("%s is not set", env)
		}
	}

	vc := vault.DefaultConfig()
	vc.Address = os.Getenv("VAULT_ADDR")
	client, err := vault.NewClient(vc)
	if err != nil {
		return "", err
	}
	client.SetToken(os.Getenv("VAULT_TOKEN"))

	secret, err := client.Logical().Read(path)
	if err != nil {
		return "", err
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("nothing stored at %s", path)
	}
	payload := secret.Data
	if nested, ok := payload["data"].(map[string]any); ok {
		payload = nested
	}
	v, ok := payload[key].(string)
	if !ok {
		return "", fmt.Errorf("%s has no string value under %q", path, key)
	}
	return v, nil
}

// awsSecret fetches a named secret from AWS Secrets Manager using the
// default credential chain.
func awsSecret(name string) (string, error) {
	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", err
	}
	out, err := secretsmanager.NewFromConfig(awsCfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", err
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("%s holds a binary payload, want a string", name)
	}
	return *out.SecretString, nil
}
