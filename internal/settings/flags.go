package settings

import (
	"flag"
	"fmt"
	"strings"

	"github.com/UnendingLoop/IconConverter/internal/model"
)

// ParseFlags applies command-line overrides on top of env-based converter settings.
// Positional arguments are accepted as `[input-dir [output-dir]]` and win over -in/-out.
func ParseFlags(fs *flag.FlagSet, args []string, base ConverterSettings) (ConverterSettings, error) {
	cfg := base
	policy := string(base.Policy)

	fs.StringVar(&cfg.InputDir, "in", cfg.InputDir, "directory with source images (default: INPUT_DIR or images)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "directory for converted icons (default: OUTPUT_DIR or icons)")
	fs.StringVar(&policy, "policy", policy, "what to do with a broken file: skip|abort")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "files converted in parallel (1 = sequential)")
	fs.IntVar(&cfg.Quality, "quality", cfg.Quality, "jpeg quality 1..100")
	fs.StringVar(&cfg.ReportFormat, "report", cfg.ReportFormat, "batch report written to the output dir: json|yaml|none")
	if err := fs.Parse(args); err != nil {
		return ConverterSettings{}, err
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.InputDir = rest[0]
	case 2:
		cfg.InputDir, cfg.OutputDir = rest[0], rest[1]
	default:
		return ConverterSettings{}, fmt.Errorf("too many arguments: %q", rest[2:])
	}

	cfg.Policy = model.Policy(strings.ToLower(strings.TrimSpace(policy)))
	cfg.ReportFormat = strings.ToLower(strings.TrimSpace(cfg.ReportFormat))
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return cfg, cfg.Validate()
}
