package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Auth:   Auth{JWTSecret: "secret"},
		Quiz:   Quiz{DefaultSize: 10, MaxSize: 50},
		Upload: Upload{MaxBytes: 5 << 20, MaxRows: 1000},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "AUTH_JWT_SECRET"},
		{name: "max below default", mutate: func(c *Config) { c.Quiz.MaxSize = 5 }, wantErr: "quiz size"},
		{name: "zero upload bytes", mutate: func(c *Config) { c.Upload.MaxBytes = 0 }, wantErr: "UPLOAD_MAX_BYTES"},
		{name: "negative upload bytes", mutate: func(c *Config) { c.Upload.MaxBytes = -1 }, wantErr: "UPLOAD_MAX_BYTES"},
		{name: "zero upload rows", mutate: func(c *Config) { c.Upload.MaxRows = 0 }, wantErr: "UPLOAD_MAX_ROWS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validate error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
