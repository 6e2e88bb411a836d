package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"beltche-mcp/pkg/logging"
)

// SecretsClient is the subset of the Secrets Manager API used to seed the environment.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretSource names the secret whose JSON object is copied into the environment.
type SecretSource struct {
	SecretID     string
	VersionStage string
	// Overwrite replaces variables that are already set.
	Overwrite bool
}

func secretSourceFromEnv() SecretSource {
	src := SecretSource{
		SecretID:     os.Getenv("AWS_SECRETS_MANAGER_SECRET_ID"),
		VersionStage: os.Getenv("AWS_SECRETS_MANAGER_VERSION_STAGE"),
		Overwrite:    strings.EqualFold(os.Getenv("AWS_SECRETS_MANAGER_OVERWRITE"), "true"),
	}
	if src.SecretID == "" {
		src.SecretID = os.Getenv("AWS_SECRET_ID")
	}
	if src.VersionStage == "" {
		src.VersionStage = "AWSCURRENT"
	}
	return src
}

func loadSecretsIntoEnv(ctx context.Context, client SecretsClient) error {
	src := secretSourceFromEnv()
	if src.SecretID == "" {
		return nil
	}

	if client == nil {
		cfg, err := loadAWSConfig(ctx, os.Getenv("AWS_SECRETS_MANAGER_REGION"))
		if err != nil {
			return fmt.Errorf("loading AWS config: %w", err)
		}
		client = secretsmanager.NewFromConfig(cfg)
	}

	applied, err := ApplySecret(ctx, client, src)
	if err != nil {
		return err
	}
	logging.Info("Bootstrap", "Loaded %d env vars from AWS Secrets Manager secret %s (overwrite=%v)", applied, src.SecretID, src.Overwrite)
	return nil
}

// ApplySecret fetches src and exports each top-level key of its JSON payload
// as an environment variable. It returns the number of variables set.
func ApplySecret(ctx context.Context, client SecretsClient, src SecretSource) (int, error) {
	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(src.SecretID)}
	if src.VersionStage != "" {
		input.VersionStage = aws.String(src.VersionStage)
	}

	output, err := client.GetSecretValue(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("fetching secret %s: %w", src.SecretID, err)
	}

	var payload string
	switch {
	case output.SecretString != nil:
		payload = *output.SecretString
	case len(output.SecretBinary) > 0:
		payload = string(output.SecretBinary)
	default:
		return 0, fmt.Errorf("secret %s has no payload", src.SecretID)
	}

	var kv map[string]interface{}
	if err := json.Unmarshal([]byte(payload), &kv); err != nil {
		return 0, fmt.Errorf("parsing secret %s as JSON: %w", src.SecretID, err)
	}

	applied := 0
	for key, val := range kv {
		if !src.Overwrite && os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return applied, fmt.Errorf("setting env %s from secret: %w", key, err)
		}
		applied++
	}
	return applied, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region != "" {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx)
}
