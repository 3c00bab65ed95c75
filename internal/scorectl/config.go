// Package scorectl implements the terminal client of the scoring service:
// single predictions, bounded batch runs over the dataset and a local stub.
package scorectl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Defaults shared by the flags.
const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultDataset = "test_df.csv"
	DefaultTimeout = 10 * time.Second
	DefaultWorkers = 4
	DefaultStub    = ":8000"
)

// Error constants
var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrPredictionFailed  = errors.New("prediction failed")
	ErrInvalidArgs       = errors.New("invalid arguments")
)

// Config holds the global flags.
type Config struct {
	BaseURL     string        // Root of the scoring service
	DatasetPath string        // Client CSV used by --id and batch
	Timeout     time.Duration // Per-call timeout
	Format      string        // json or yaml
	Debug       bool          // Verbose logging on stderr
	Out         io.Writer     // Result destination, stdout when nil
}

// normalizeFormat accepts json, yaml and yml in any case.
func normalizeFormat(f string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
}

func (c *Config) out() io.Writer {
	if c.Out == nil {
		return os.Stdout
	}
	return c.Out
}
