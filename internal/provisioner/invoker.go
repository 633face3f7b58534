package provisioner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/terabiome/stackbuilder/internal/credentials"
	"github.com/terabiome/stackbuilder/pkg/constants"
	"github.com/terabiome/stackbuilder/pkg/executor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

type Operation string

const (
	OperationInstall   Operation = "install"
	OperationUninstall Operation = "uninstall"
)

func (o Operation) script() string {
	if o == OperationUninstall {
		return constants.UninstallScript
	}
	return constants.InstallScript
}

// Output is what a provisioning script produced.
type Output struct {
	Operation Operation
	ExitCode  int
	Stdout    string
	Stderr    string
	Duration  time.Duration
}

// ArgsFunc builds the positional script arguments once credential files are
// staged.
type ArgsFunc func(staged *credentials.Set) []string

type Config struct {
	// ScriptRoot holds deploy.sh and uninstall.sh and is the working directory.
	ScriptRoot string
	// Shell interprets the scripts, "bash" when empty.
	Shell string
	// TempDir receives staged credential files, the system default when empty.
	TempDir string
	// Timeout bounds each script run. Zero means no limit.
	Timeout time.Duration
}

type commandDescriber interface {
	CommandString(command string, args []string) string
}

type Invoker struct {
	exec   executor.Executor
	cfg    Config
	logger *slog.Logger

	runCounter  metric.Int64Counter
	runDuration metric.Float64Histogram
}

func NewInvoker(exec executor.Executor, cfg Config, logger *slog.Logger) *Invoker {
	if cfg.Shell == "" {
		cfg.Shell = "bash"
	}
	if cfg.ScriptRoot != "" {
		if abs, err := filepath.Abs(cfg.ScriptRoot); err == nil {
			cfg.ScriptRoot = abs
		}
	}

	meter := otel.Meter("stackbuilder/provisioner")

	runCounter, err := meter.Int64Counter(
		"stackbuilder.provision.runs",
		metric.WithDescription("Number of provisioning script runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		logger.Warn("failed to create runCounter metric", slog.String("error", err.Error()))
	}

	runDuration, err := meter.Float64Histogram(
		"stackbuilder.provision.duration",
		metric.WithDescription("Duration of provisioning script runs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create runDuration metric", slog.String("error", err.Error()))
	}

	return &Invoker{
		exec:        exec,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "provisioner")),
		runCounter:  runCounter,
		runDuration: runDuration,
	}
}

// Provision stages blobs, runs the script for op with the arguments built by
// argsFn and removes the staged files on every exit path. Removal failures are
// logged only.
func (i *Invoker) Provision(ctx context.Context, op Operation, blobs credentials.Blobs, argsFn ArgsFunc) (*Output, error) {
	staged, err := credentials.Materialize(i.cfg.TempDir, blobs)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := staged.Remove(); err != nil {
			i.logger.Warn("failed to remove staged credentials",
				slog.String("operation", string(op)),
				slog.String("error", err.Error()),
			)
		}
	}()

	return i.Run(ctx, op, argsFn(staged))
}

// Run executes the script for op. Any failure to start or a non-zero exit is
// returned as a *DeploymentFailure alongside the captured output.
func (i *Invoker) Run(ctx context.Context, op Operation, args []string) (*Output, error) {
	tracer := otel.Tracer("stackbuilder/provisioner")
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	span.SetAttributes(attribute.String("provision.operation", string(op)))

	if i.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.cfg.Timeout)
		defer cancel()
	}

	script := filepath.Join(i.cfg.ScriptRoot, op.script())
	argv := append([]string{script}, args...)

	if d, ok := i.exec.(commandDescriber); ok {
		i.logger.Info("running provisioning script",
			slog.String("operation", string(op)),
			slog.String("cmd", d.CommandString(i.cfg.Shell, argv)),
		)
	} else {
		i.logger.Info("running provisioning script",
			slog.String("operation", string(op)),
			slog.String("script", script),
			slog.Int("args", len(args)),
		)
	}

	startTime := time.Now()
	result, err := executor.RunAndCapture(ctx, i.exec, i.cfg.Shell, argv...)

	out := &Output{
		Operation: op,
		ExitCode:  result.ExitCode,
		Stdout:    result.Stdout,
		Stderr:    result.Stderr,
		Duration:  time.Since(startTime),
	}

	status := "success"
	if err != nil || result.ExitCode != 0 {
		status = "failed"
	}
	if i.runCounter != nil {
		i.runCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", string(op)),
			attribute.String("status", status),
		))
	}
	if i.runDuration != nil {
		i.runDuration.Record(ctx, out.Duration.Seconds(), metric.WithAttributes(
			attribute.String("operation", string(op)),
		))
	}

	if err != nil || result.ExitCode != 0 {
		if err == nil {
			err = fmt.Errorf("command exited with code %d", result.ExitCode)
		}
		failure := &DeploymentFailure{
			Operation: op,
			ExitCode:  result.ExitCode,
			Stderr:    result.Stderr,
			Err:       err,
		}
		span.RecordError(failure)
		span.SetStatus(codes.Error, "provisioning script failed")
		i.logger.Error("provisioning script failed",
			slog.String("operation", string(op)),
			slog.Int("exit_code", result.ExitCode),
			slog.String("error", failure.Error()),
		)
		return out, failure
	}

	i.logger.Info("provisioning script finished",
		slog.String("operation", string(op)),
		slog.Duration("duration", out.Duration),
	)
	return out, nil
}
