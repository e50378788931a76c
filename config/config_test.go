package config

import "testing"

func validConfig() *Config {
	return &Config{
		Env:                  EnvDevelopment,
		ServiceUUID:          "uuid-1",
		ServiceType:          "OSD",
		ServiceName:          "osd-1",
		DIREndpoint:          "dir.example.org:32638",
		UpdateIntervalMillis: 60000,
		AdvertisedPort:       32640,
		Scheme:               "oncrpc",
	}
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidate_RejectsMissingServiceUUID(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceUUID = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected a validation error for an empty ServiceUUID")
	}
}

func TestValidate_RejectsUnknownServiceType(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceType = "BOGUS"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected a validation error for an unrecognized ServiceType")
	}
}

func TestValidate_RejectsTooShortUpdateInterval(t *testing.T) {
	cfg := validConfig()
	cfg.UpdateIntervalMillis = 10
	if err := Validate(cfg); err == nil {
		t.Fatal("expected a validation error for an update interval below the minimum")
	}
}

func TestValidate_RequiresCertFileWhenSSLEnabled(t *testing.T) {
	cfg := validConfig()
	cfg.UseSSL = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected a validation error when UseSSL is set without CertFile")
	}

	cfg.CertFile = "/etc/heartbeatagentd/cert.pem"
	cfg.KeyFile = "/etc/heartbeatagentd/key.pem"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected validation error once CertFile/KeyFile are set: %v", err)
	}
}

func TestStructConvertMapByTag_SkipsUntaggedAndDashFields(t *testing.T) {
	type sample struct {
		Keep    string `tag:"keep"`
		Skip    string `tag:"-"`
		Ignored string
	}
	got := StructConvertMapByTag(sample{Keep: "a", Skip: "b", Ignored: "c"}, "tag")

	if got["keep"] != "a" {
		t.Fatalf("expected tagged field to be present, got %v", got)
	}
	if _, ok := got["-"]; ok {
		t.Fatal("dash-tagged field must not appear in the output")
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one key, got %v", got)
	}
}

func TestServiceAttributeStrings_OperatorOverridesWin(t *testing.T) {
	cfg := validConfig()
	cfg.ServiceAttributes = map[string]string{"service_name": "overridden"}

	out := ServiceAttributeStrings(cfg)
	if out["service_name"] != "overridden" {
		t.Fatalf("expected operator override to win, got %q", out["service_name"])
	}
	if out["service_uuid"] != "uuid-1" {
		t.Fatalf("expected struct-derived field to survive, got %v", out)
	}
}
