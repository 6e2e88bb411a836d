// Package config builds the process configuration from environment variables.
//
// Values are resolved in this order, earlier sources winning:
//
//  1. the process environment
//  2. an AWS Secrets Manager secret (AWS_SECRETS_MANAGER_SECRET_ID), unless
//     AWS_SECRETS_MANAGER_OVERWRITE=true lets it replace existing values
//  3. a .env file (ENV_FILE_PATH, default ".env")
//
// Validation collects every problem at once so the operator can fix them in
// one pass; the server refuses to start while any remain.
package config
