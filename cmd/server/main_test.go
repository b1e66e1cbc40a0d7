package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inventra/backend/internal/config"
)

func TestValidateConfigRejectsShortSecret(t *testing.T) {
	err := validateConfig(config.Config{AuthSecret: "short"})
	assert.Error(t, err)
}

func TestValidateConfigAcceptsHeaderMode(t *testing.T) {
	assert.NoError(t, validateConfig(config.Config{}))
	assert.NoError(t, validateConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"}))
}

func TestValidateConfigRequiresMinioCredentials(t *testing.T) {
	err := validateConfig(config.Config{MinioEndpoint: "localhost:9000", MinioBucket: "receipts"})
	assert.Error(t, err)

	err = validateConfig(config.Config{MinioEndpoint: "localhost:9000", MinioAccessKey: "ak", MinioSecretKey: "sk", MinioBucket: "receipts"})
	assert.NoError(t, err)
}
