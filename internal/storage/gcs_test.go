package storage

import (
	"testing"

	"github.com/jittakal/jpostcode/internal/observability"
)

func TestGCSConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  GCSConfig
		wantErr bool
	}{
		{name: "valid config", config: GCSConfig{Bucket: "postal", ProjectID: "jpostcode"}},
		{name: "bucket only", config: GCSConfig{Bucket: "postal"}},
		{name: "missing bucket", config: GCSConfig{ProjectID: "jpostcode"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGCSConfig_ClientOptions(t *testing.T) {
	tests := []struct {
		name   string
		config GCSConfig
		want   int
	}{
		{name: "application default", config: GCSConfig{Bucket: "b"}, want: 0},
		{name: "forced default ignores file", config: GCSConfig{Bucket: "b", UseDefaultCredential: true, CredentialsFile: "sa.json"}, want: 0},
		{name: "credentials file", config: GCSConfig{Bucket: "b", CredentialsFile: "sa.json"}, want: 1},
		{name: "credentials json", config: GCSConfig{Bucket: "b", CredentialsJSON: "{}"}, want: 1},
		{name: "emulator endpoint", config: GCSConfig{Bucket: "b", Endpoint: "http://localhost:4443/storage/v1/"}, want: 1},
		{name: "endpoint and file", config: GCSConfig{Bucket: "b", Endpoint: "http://localhost:4443", CredentialsFile: "sa.json"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(tt.config.clientOptions()); got != tt.want {
				t.Errorf("clientOptions() = %d options, want %d", got, tt.want)
			}
		})
	}
}

func TestGCSWriter_Backend(t *testing.T) {
	w := &GCSWriter{logger: observability.NopLogger()}
	if w.Backend() != "gcs" {
		t.Errorf("Backend() = %q", w.Backend())
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
