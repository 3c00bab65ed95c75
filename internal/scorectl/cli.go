package scorectl

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/creditscope/internal/adapters/scoring/stub"
	"github.com/okian/creditscope/pkg/logger"
	"github.com/urfave/cli/v3"
)

// Flag names.
const (
	flagURL     = "url"
	flagDataset = "dataset"
	flagTimeout = "timeout"
	flagFormat  = "format"
	flagDebug   = "debug"
	flagID      = "id"
	flagRecord  = "record"
	flagLimit   = "limit"
	flagWorkers = "workers"
	flagAddr    = "addr"
	flagLatency = "latency"
)

var (
	urlFlag = &cli.StringFlag{
		Name:  flagURL,
		Usage: "Base URL of the scoring service",
		Value: DefaultBaseURL,
	}

	datasetFlag = &cli.StringFlag{
		Name:  flagDataset,
		Usage: "Path to the client CSV",
		Value: DefaultDataset,
	}

	timeoutFlag = &cli.DurationFlag{
		Name:  flagTimeout,
		Usage: "Timeout of each remote call",
		Value: DefaultTimeout,
	}

	formatFlag = &cli.StringFlag{
		Name:  flagFormat,
		Usage: "Output format [json, yaml]",
		Value: FormatJSON,
	}

	debugFlag = &cli.BoolFlag{
		Name:  flagDebug,
		Usage: "Prints verbose logs on stderr (optional, default: false)",
	}
)

// NewCommand builds the scorectl command tree. Results go to out.
func NewCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:            "scorectl",
		Usage:           "Score credit applications against the prediction service",
		HideHelpCommand: true,
		Writer:          out,
		Flags:           []cli.Flag{urlFlag, datasetFlag, timeoutFlag, formatFlag, debugFlag},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level := "warn"
			if cmd.Bool(flagDebug) {
				level = "debug"
			}
			if err := logger.InitWith(os.Stderr, logger.FormatText); err != nil {
				return ctx, err
			}
			return ctx, logger.SetLevelString(level)
		},
		Commands: []*cli.Command{
			predictCommand(),
			batchCommand(),
			stubCommand(),
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	if err := NewCommand(os.Stdout).Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "scorectl:", err)
		return 1
	}
	return 0
}

func configFrom(cmd *cli.Command) *Config {
	return &Config{
		BaseURL:     cmd.String(flagURL),
		DatasetPath: cmd.String(flagDataset),
		Timeout:     cmd.Duration(flagTimeout),
		Format:      cmd.String(flagFormat),
		Debug:       cmd.Bool(flagDebug),
		Out:         cmd.Root().Writer,
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:  "predict",
		Usage: "Score one dataset client (--id) or a record file (--record)",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: flagID, Usage: "Client id (SK_ID_CURR) from the dataset"},
			&cli.StringFlag{Name: flagRecord, Usage: "Path to a .json or .yaml record"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			byID, byRecord := cmd.IsSet(flagID), cmd.String(flagRecord) != ""
			if byID == byRecord {
				return fmt.Errorf("%w: exactly one of --%s or --%s is required", ErrInvalidArgs, flagID, flagRecord)
			}

			r, err := Open(configFrom(cmd), byID, logger.Named("scorectl"))
			if err != nil {
				return err
			}
			if byID {
				return r.PredictID(ctx, cmd.Int64(flagID))
			}

			rec, err := LoadRecord(cmd.String(flagRecord))
			if err != nil {
				return err
			}
			return r.PredictRecord(ctx, rec)
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Score dataset clients with bounded concurrency",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: flagLimit, Usage: "Number of clients to score, 0 for all"},
			&cli.IntFlag{Name: flagWorkers, Usage: "Predictions in flight", Value: DefaultWorkers},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Int(flagLimit) < 0 || cmd.Int(flagWorkers) < 1 {
				return fmt.Errorf("%w: --%s must be >= 0 and --%s >= 1", ErrInvalidArgs, flagLimit, flagWorkers)
			}
			r, err := Open(configFrom(cmd), true, logger.Named("scorectl"))
			if err != nil {
				return err
			}
			_, err = r.Batch(ctx, cmd.Int(flagLimit), cmd.Int(flagWorkers))
			return err
		},
	}
}

func stubCommand() *cli.Command {
	return &cli.Command{
		Name:  "stub",
		Usage: "Serve a local stand-in of the prediction service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagAddr, Usage: "Listen address", Value: DefaultStub},
			&cli.DurationFlag{Name: flagLatency, Usage: "Maximum simulated latency per call"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.Named("stub")
			svc := stub.New(
				stub.WithLatencyRange(0, cmd.Duration(flagLatency)),
				stub.WithLogger(log),
			)
			return ServeStub(ctx, cmd.String(flagAddr), svc.Handler(), log, nil)
		},
	}
}
