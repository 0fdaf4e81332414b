package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.Platform.CommissionRate != 0.15 {
		t.Fatalf("expected commission 0.15, got %v", cfg.Platform.CommissionRate)
	}
	if cfg.Platform.Currency != "INR" {
		t.Fatalf("expected INR, got %q", cfg.Platform.Currency)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LOCALPRO_HTTP_ADDR", ":9090")
	t.Setenv("LOCALPRO_PLATFORM_COMMISSION_RATE", "0.2")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("expected :9090, got %q", cfg.HTTP.Addr)
	}
	if cfg.Platform.CommissionRate != 0.2 {
		t.Fatalf("expected 0.2, got %v", cfg.Platform.CommissionRate)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"commission_negative", func(c *Config) { c.Platform.CommissionRate = -0.1 }, true},
		{"commission_one", func(c *Config) { c.Platform.CommissionRate = 1 }, true},
		{"tax_too_high", func(c *Config) { c.Platform.TaxRate = 1.5 }, true},
		{"missing_dsn", func(c *Config) { c.DB.DSN = "" }, true},
		{"zero_rate_limit", func(c *Config) { c.RateLimit.PerMinute = 0 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{}
			cfg.DB.DSN = "postgres://x"
			cfg.Platform.CommissionRate = 0.15
			cfg.Platform.TaxRate = 0.18
			cfg.RateLimit.PerMinute = 60
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
