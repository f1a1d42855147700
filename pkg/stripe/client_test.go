package stripe

import (
	"context"
	"testing"

	"github.com/launchforge/launchforge-backend/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnvironment(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name    string
		cfg     config.StripeConfig
		wantErr bool
	}{
		{
			name: "test env with test key",
			cfg:  config.StripeConfig{APIKey: "sk_test_abc", Env: "test"},
		},
		{
			name:    "test env with live key",
			cfg:     config.StripeConfig{APIKey: "sk_live_abc", Env: "test"},
			wantErr: true,
		},
		{
			name: "live env with live key",
			cfg:  config.StripeConfig{APIKey: "sk_live_abc", Env: "live"},
		},
		{
			name:    "unknown environment",
			cfg:     config.StripeConfig{APIKey: "sk_test_abc", Env: "staging"},
			wantErr: true,
		},
		{
			name:    "missing api key",
			cfg:     config.StripeConfig{Env: "test"},
			wantErr: true,
		},
		{
			name: "blank env defaults to test",
			cfg:  config.StripeConfig{APIKey: "rk_test_abc"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(ctx, tc.cfg, nil, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if client.API() == nil {
				t.Fatalf("expected initialized api client")
			}
		})
	}
}

func TestClientEnvironmentAccessors(t *testing.T) {
	client, err := NewClient(context.Background(), config.StripeConfig{
		APIKey:        "sk_test_abc",
		WebhookSecret: " whsec_123 ",
	}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.Environment() != "test" {
		t.Fatalf("expected test environment, got %q", client.Environment())
	}
	if client.SigningSecret() != "whsec_123" {
		t.Fatalf("expected trimmed signing secret, got %q", client.SigningSecret())
	}
}
