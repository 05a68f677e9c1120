package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	strongSecret := "secure-secret-at-least-32-chars-long"

	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{
			name:   "Development with defaults",
			config: Config{Env: "development", Port: "8460", JWTSecret: "your-secret-key-change-in-production"},
		},
		{
			name:        "Missing port",
			config:      Config{Env: "development", JWTSecret: strongSecret},
			expectError: true,
		},
		{
			name:        "Missing JWT secret",
			config:      Config{Env: "development", Port: "8460"},
			expectError: true,
		},
		{
			name:        "Production with default JWT secret",
			config:      Config{Env: "production", Port: "8460", JWTSecret: "your-secret-key-change-in-production", DBPassword: "strong-pw"},
			expectError: true,
		},
		{
			name:        "Production with short JWT secret",
			config:      Config{Env: "production", Port: "8460", JWTSecret: "short", DBPassword: "strong-pw"},
			expectError: true,
		},
		{
			name:        "Production with default DB password",
			config:      Config{Env: "production", Port: "8460", JWTSecret: strongSecret, DBPassword: "password"},
			expectError: true,
		},
		{
			name:   "Production hardened",
			config: Config{Env: "production", Port: "8460", JWTSecret: strongSecret, DBPassword: "strong-pw", DBSSLMode: "require"},
		},
		{
			name:   "Prod alias hardened",
			config: Config{Env: "prod", Port: "8460", JWTSecret: strongSecret, DBPassword: "strong-pw", DBSSLMode: "require"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	assert.True(t, (&Config{Env: "production"}).IsProduction())
	assert.True(t, (&Config{Env: "prod"}).IsProduction())
	assert.False(t, (&Config{Env: "development"}).IsProduction())
	assert.False(t, (&Config{Env: "test"}).IsProduction())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "8460", c.Port)
	assert.Equal(t, "inkwell", c.DBName)
	assert.Equal(t, "https://api.groq.com/openai/v1/chat/completions", c.GroqAPIURL)
	assert.Equal(t, "llama-3.3-70b-versatile", c.GroqModel)
	assert.Equal(t, "/tmp/inkwell/uploads", c.UploadDir)
	assert.False(t, c.TracingEnabled)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("GROQ_MODEL")
	defer viper.Reset()

	os.Setenv("APP_ENV", "test")
	os.Setenv("PORT", "9999")
	os.Setenv("GROQ_MODEL", "llama-guard-override")

	c, err := LoadConfig()
	assert.NoError(t, err)
	assert.Equal(t, "9999", c.Port)
	assert.Equal(t, "llama-guard-override", c.GroqModel)
}
