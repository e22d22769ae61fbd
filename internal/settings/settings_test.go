package settings

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/UnendingLoop/IconConverter/internal/model"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"INPUT_DIR", "OUTPUT_DIR", "ERROR_POLICY", "WORKERS", "JPEG_QUALITY", "REPORT_FORMAT", "STORAGE_BACKEND", "MAIL_TO"} {
		t.Setenv(k, "")
	}

	cfg, err := Bootstrap("")
	require.NoError(t, err)

	s := Load(cfg)
	require.Equal(t, "images", s.Converter.InputDir)
	require.Equal(t, "icons", s.Converter.OutputDir)
	require.Equal(t, model.PolicySkip, s.Converter.Policy)
	require.Equal(t, 1, s.Converter.Workers)
	require.Equal(t, model.DefaultQuality, s.Converter.Quality)
	require.Equal(t, "json", s.Converter.ReportFormat)
	require.Equal(t, BackendLocal, s.Storage.Backend)
	require.Empty(t, s.Mail.To)
	require.Equal(t, MailTLSStartTLS, s.Mail.TLS)
	require.Equal(t, 30*time.Second, s.Mail.Timeout)
	require.NoError(t, s.Converter.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("INPUT_DIR", "/tmp/in")
	t.Setenv("OUTPUT_DIR", "/opt/icons")
	t.Setenv("ERROR_POLICY", "ABORT")
	t.Setenv("WORKERS", "4")
	t.Setenv("JPEG_QUALITY", "not-a-number")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("WEBHOOK_DELAY", "250ms")
	t.Setenv("MAIL_TO", "ops@example.com, , web@example.com")
	t.Setenv("SMTP_TLS", "Implicit")
	t.Setenv("SMTP_TIMEOUT", "5s")

	cfg, err := Bootstrap(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	s := Load(cfg)
	require.Equal(t, "/tmp/in", s.Converter.InputDir)
	require.Equal(t, "/opt/icons", s.Converter.OutputDir)
	require.Equal(t, model.PolicyAbort, s.Converter.Policy)
	require.Equal(t, 4, s.Converter.Workers)
	require.Equal(t, model.DefaultQuality, s.Converter.Quality)
	require.True(t, s.Storage.UseSSL)
	require.Equal(t, 250*time.Millisecond, s.Webhook.Delay)
	require.Equal(t, []string{"ops@example.com", "web@example.com"}, s.Mail.To)
	require.Equal(t, MailTLSImplicit, s.Mail.TLS)
	require.Equal(t, 5*time.Second, s.Mail.Timeout)
}

func TestBootstrap_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BUCKET_NAME=from-file\n"), 0o644))

	cfg, err := Bootstrap(path)
	require.NoError(t, err)
	require.Equal(t, "from-file", Load(cfg).Storage.Bucket)
}

func TestConverterSettings_Validate(t *testing.T) {
	valid := ConverterSettings{InputDir: "in", OutputDir: "out", Policy: model.PolicySkip, ReportFormat: "yaml"}

	tests := []struct {
		name    string
		mutate  func(c *ConverterSettings)
		wantErr error
	}{
		{"valid", func(c *ConverterSettings) {}, nil},
		{"empty input", func(c *ConverterSettings) { c.InputDir = " " }, model.ErrEmptyInputDir},
		{"empty output", func(c *ConverterSettings) { c.OutputDir = "" }, model.ErrEmptyOutputDir},
		{"bad policy", func(c *ConverterSettings) { c.Policy = "retry" }, model.ErrIncorrectPolicy},
		{"bad report", func(c *ConverterSettings) { c.ReportFormat = "xml" }, model.ErrUnsupportedReportFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseFlags(t *testing.T) {
	base := ConverterSettings{
		InputDir:     "images",
		OutputDir:    "icons",
		Policy:       model.PolicySkip,
		Workers:      1,
		Quality:      90,
		ReportFormat: "json",
	}

	tests := []struct {
		name    string
		args    []string
		want    ConverterSettings
		wantErr bool
	}{
		{
			name: "no args keeps env values",
			args: nil,
			want: base,
		},
		{
			name: "flags",
			args: []string{"-in", "src", "-out", "dst", "-policy", "Abort", "-workers", "0", "-quality", "75", "-report", "YAML"},
			want: ConverterSettings{InputDir: "src", OutputDir: "dst", Policy: model.PolicyAbort, Workers: 1, Quality: 75, ReportFormat: "yaml"},
		},
		{
			name: "positional dirs win",
			args: []string{"-in", "ignored", "images/", "/opt/icons/"},
			want: ConverterSettings{InputDir: "images/", OutputDir: "/opt/icons/", Policy: model.PolicySkip, Workers: 1, Quality: 90, ReportFormat: "json"},
		},
		{
			name:    "too many args",
			args:    []string{"a", "b", "c"},
			wantErr: true,
		},
		{
			name:    "bad policy",
			args:    []string{"-policy", "ignore"},
			wantErr: true,
		},
		{
			name:    "unknown flag",
			args:    []string{"-rotate", "90"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("iconconv", flag.ContinueOnError)
			fs.SetOutput(io.Discard)

			got, err := ParseFlags(fs, tt.args, base)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
