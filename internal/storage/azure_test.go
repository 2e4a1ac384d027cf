package storage

import (
	"strings"
	"testing"

	"github.com/jittakal/jpostcode/internal/observability"
)

func TestAzureConfig_Validation(t *testing.T) {
	valid := AzureConfig{AccountName: "jpostcode", AccountKey: "a2V5", ContainerName: "postal"}

	tests := []struct {
		name    string
		modify  func(*AzureConfig)
		wantErr bool
	}{
		{name: "valid config", modify: func(*AzureConfig) {}},
		{name: "missing account", modify: func(c *AzureConfig) { c.AccountName = "" }, wantErr: true},
		{name: "missing key", modify: func(c *AzureConfig) { c.AccountKey = "" }, wantErr: true},
		{name: "missing container", modify: func(c *AzureConfig) { c.ContainerName = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.modify(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAzureConnectionString(t *testing.T) {
	public := AzureConfig{AccountName: "acct", AccountKey: "a2V5"}.connectionString()
	if !strings.Contains(public, "AccountName=acct") || !strings.Contains(public, "EndpointSuffix=core.windows.net") {
		t.Errorf("public connection string = %q", public)
	}

	emulator := AzureConfig{AccountName: "devstoreaccount1", AccountKey: "a2V5", Endpoint: "http://127.0.0.1:10000/devstoreaccount1"}.connectionString()
	if !strings.Contains(emulator, "BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1") {
		t.Errorf("emulator connection string = %q", emulator)
	}
	if strings.Contains(emulator, "EndpointSuffix") {
		t.Errorf("emulator connection string should not carry a suffix: %q", emulator)
	}
}

func TestNewAzureWriter(t *testing.T) {
	w, err := NewAzureWriter(AzureConfig{
		AccountName:   "devstoreaccount1",
		AccountKey:    "a2V5",
		ContainerName: "postal",
		Endpoint:      "http://127.0.0.1:10000/devstoreaccount1",
	}, observability.NopLogger(), nil)
	if err != nil {
		t.Fatalf("NewAzureWriter() error = %v", err)
	}
	defer w.Close()

	if w.Backend() != "azure" {
		t.Errorf("Backend() = %q", w.Backend())
	}

	if _, err := NewAzureWriter(AzureConfig{AccountName: "a"}, observability.NopLogger(), nil); err == nil {
		t.Error("NewAzureWriter() with incomplete config should fail")
	}
}
