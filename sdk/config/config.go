// Package config exposes the Coze runtime configuration to SDK consumers.
package config

import internalconfig "github.com/router-for-me/CozeSDK/internal/config"

type Config = internalconfig.Config
type AuthConfig = internalconfig.AuthConfig
type JWTConfig = internalconfig.JWTConfig
type ChatConfig = internalconfig.ChatConfig
type StreamingConfig = internalconfig.StreamingConfig

const DefaultBaseURL = internalconfig.DefaultBaseURL

// LoadConfig reads a YAML file, applies COZE_* environment overrides and fills defaults.
func LoadConfig(path string) (*Config, error) { return internalconfig.LoadConfig(path) }
