// Package node ties credential staging, script invocation, result extraction
// and the token/proxy flow into the lifecycle of one deployed stack.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terabiome/stackbuilder/internal/auth"
	"github.com/terabiome/stackbuilder/internal/credentials"
	"github.com/terabiome/stackbuilder/internal/extractor"
	"github.com/terabiome/stackbuilder/internal/provisioner"
	"github.com/terabiome/stackbuilder/internal/proxy"
	"github.com/terabiome/stackbuilder/internal/session"
	"github.com/terabiome/stackbuilder/pkg/constants"
	"github.com/terabiome/stackbuilder/pkg/templator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Options carries the collaborators shared with other nodes or built by the
// host.
type Options struct {
	Invoker    *provisioner.Invoker
	HTTPClient *http.Client
	// Endpoint URL templates, the defaults when empty.
	TokenURLTemplate   string
	ServiceURLTemplate string
}

type Node struct {
	cfg     Config
	profile profile
	invoker *provisioner.Invoker
	session *session.State
	broker  *auth.Broker
	proxy   *proxy.Client
	logger  *slog.Logger

	// lifecycle serializes deploy and uninstall.
	lifecycle sync.Mutex

	mu        sync.RWMutex
	phase     Phase
	result    extractor.Result
	lastError string
	updatedAt time.Time

	opCounter  metric.Int64Counter
	opDuration metric.Float64Histogram
}

// New builds a node. A missing ID is generated.
func New(cfg Config, opts Options, logger *slog.Logger) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Invoker == nil {
		return nil, errors.New("node requires a provisioning invoker")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.ClientID == "" && cfg.Kind == constants.KIND_FEDERATED_CATALOGUE {
		cfg.ClientID = constants.DefaultCatalogueClientID
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger = logger.With(
		slog.String("component", "node"),
		slog.String("node", cfg.ID),
		slog.String("kind", string(cfg.Kind)),
	)

	n := &Node{
		cfg:       cfg,
		profile:   profiles[cfg.Kind],
		invoker:   opts.Invoker,
		session:   session.New(),
		logger:    logger,
		phase:     PhaseIdle,
		updatedAt: time.Now(),
	}

	if n.profile.serviceCalls {
		endpoints, err := templator.NewEndpoints(opts.TokenURLTemplate, opts.ServiceURLTemplate, cfg.Domain, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to build endpoints for node %s: %w", cfg.ID, err)
		}
		adminURL, err := endpoints.TokenURL(constants.RealmAdmin)
		if err != nil {
			return nil, err
		}
		serviceTokenURL, err := endpoints.TokenURL(constants.RealmService)
		if err != nil {
			return nil, err
		}
		serviceURL, err := endpoints.ServiceURL()
		if err != nil {
			return nil, err
		}

		n.broker = auth.NewBroker(auth.Config{
			AdminTokenURL:   adminURL,
			ServiceTokenURL: serviceTokenURL,
			ClientID:        cfg.ClientID,
			Admin:           auth.Credentials{Username: cfg.AdminUser, Password: cfg.AdminPassword},
			DefaultUser:     auth.Credentials{Username: cfg.DefaultUser, Password: cfg.DefaultPassword},
		}, n.session, httpClient, logger)
		n.proxy = proxy.NewClient(serviceURL, httpClient, logger)
	}

	meter := otel.Meter("stackbuilder/node")

	opCounter, err := meter.Int64Counter(
		"stackbuilder.node.operations",
		metric.WithDescription("Number of node lifecycle operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		logger.Warn("failed to create opCounter metric", slog.String("error", err.Error()))
	}

	opDuration, err := meter.Float64Histogram(
		"stackbuilder.node.operation.duration",
		metric.WithDescription("Duration of node lifecycle operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create opDuration metric", slog.String("error", err.Error()))
	}

	n.opCounter = opCounter
	n.opDuration = opDuration

	return n, nil
}

func (n *Node) ID() string {
	return n.cfg.ID
}

func (n *Node) Kind() constants.NodeKind {
	return n.cfg.Kind
}

func (n *Node) Config() Config {
	return n.cfg
}

// SupportsServiceCalls reports whether a topic is routed to the service.
func (n *Node) SupportsServiceCalls() bool {
	return n.profile.serviceCalls
}

// Handle routes an input message: a topic on a kind with service calls goes
// to Call, anything else triggers a deploy.
func (n *Node) Handle(ctx context.Context, msg Message) (*Output, error) {
	if msg.IsServiceCall() && n.profile.serviceCalls {
		return n.Call(ctx, msg)
	}
	return n.deploy(ctx, msg)
}

// Deploy installs the stack. On a script failure the returned output still
// carries the failure text as payload.
func (n *Node) Deploy(ctx context.Context) (*Output, error) {
	return n.deploy(ctx, Message{})
}

func (n *Node) deploy(ctx context.Context, msg Message) (*Output, error) {
	if !n.lifecycle.TryLock() {
		return nil, ErrOperationInProgress
	}
	defer n.lifecycle.Unlock()

	tracer := otel.Tracer("stackbuilder/node")
	ctx, span := tracer.Start(ctx, "Deploy")
	defer span.End()

	span.SetAttributes(
		attribute.String("node.id", n.cfg.ID),
		attribute.String("node.kind", string(n.cfg.Kind)),
	)

	n.setPhase(PhaseDeploying)
	n.logger.Info("deploying stack", slog.String("domain", n.cfg.Domain), slog.String("path", n.cfg.Path))

	startTime := time.Now()
	out, err := n.invoker.Provision(ctx, provisioner.OperationInstall, n.cfg.installBlobs(), func(s *credentials.Set) []string {
		return n.profile.installArgs(n.cfg, s)
	})
	n.record(ctx, "deploy", startTime, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deploy failed")
		n.fail(err)

		var fileErr *credentials.FileWriteError
		if errors.As(err, &fileErr) {
			n.logger.Error("failed to stage credentials", slog.String("error", err.Error()))
			return nil, err
		}
		return &Output{Topic: msg.Topic, Payload: err.Error()}, err
	}

	var result extractor.Result
	if n.profile.extracts {
		result = extractor.Extract(out.Stdout)
		// The latest deploy always replaces the secret, even with nothing.
		n.session.Set(result.ClientSecret)
	}

	n.mu.Lock()
	n.result = result
	n.phase = PhaseDeployed
	n.lastError = ""
	n.updatedAt = time.Now()
	n.mu.Unlock()

	n.logger.Info("stack deployed",
		slog.Duration("duration", out.Duration),
		slog.String("ingress_external_ip", result.IngressExternalIP),
		slog.String("fc_service_url", result.FCServiceURL),
		slog.String("keycloak_url", result.KeycloakURL),
		slog.Bool("client_secret", result.ClientSecret != ""),
	)

	if n.profile.extracts {
		return &Output{Topic: msg.Topic, Payload: result}, nil
	}
	return &Output{Topic: msg.Topic, Payload: msg.Payload}, nil
}

// Call obtains an API token and forwards msg to the deployed service.
// Service calls never wait for lifecycle operations.
func (n *Node) Call(ctx context.Context, msg Message) (*Output, error) {
	if !n.profile.serviceCalls {
		return nil, ErrServiceCallsUnsupported
	}

	tracer := otel.Tracer("stackbuilder/node")
	ctx, span := tracer.Start(ctx, "Call")
	defer span.End()

	span.SetAttributes(
		attribute.String("node.id", n.cfg.ID),
		attribute.String("proxy.topic", msg.Topic),
	)

	token, err := n.broker.APIToken(ctx, overrides(msg))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token request failed")
		n.logger.Error("service call aborted", slog.String("topic", msg.Topic), slog.String("error", err.Error()))
		return nil, err
	}

	resp, err := n.proxy.Call(ctx, token, proxy.Request{
		Topic:   msg.Topic,
		Method:  msg.Method,
		Payload: msg.Payload,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "service call failed")
		n.logger.Error("service call failed", slog.String("topic", msg.Topic), slog.String("error", err.Error()))
		return nil, err
	}

	return &Output{Topic: msg.Topic, Payload: msg.Payload, Response: resp}, nil
}

// ServiceToken returns an API token of the service realm. Overrides in msg
// take precedence as they do for Call.
func (n *Node) ServiceToken(ctx context.Context, msg Message) (string, error) {
	if !n.profile.serviceCalls {
		return "", ErrServiceCallsUnsupported
	}
	return n.broker.APIToken(ctx, overrides(msg))
}

// AdminToken returns an administrator token of the deployed identity
// provider.
func (n *Node) AdminToken(ctx context.Context) (string, error) {
	if !n.profile.serviceCalls {
		return "", ErrServiceCallsUnsupported
	}
	return n.broker.AdminToken(ctx)
}

// Uninstall removes the stack. On success the session secret and the cached
// result are cleared. On failure nothing is cleared and the node returns to
// its previous phase.
func (n *Node) Uninstall(ctx context.Context) error {
	if !n.lifecycle.TryLock() {
		return ErrOperationInProgress
	}
	defer n.lifecycle.Unlock()

	return n.uninstall(ctx)
}

func (n *Node) uninstall(ctx context.Context) error {
	tracer := otel.Tracer("stackbuilder/node")
	ctx, span := tracer.Start(ctx, "Uninstall")
	defer span.End()

	span.SetAttributes(attribute.String("node.id", n.cfg.ID))

	n.mu.Lock()
	previous := n.phase
	n.phase = PhaseUninstalling
	n.updatedAt = time.Now()
	n.mu.Unlock()

	n.logger.Info("uninstalling stack", slog.String("path", n.cfg.Path))

	startTime := time.Now()
	out, err := n.invoker.Provision(ctx, provisioner.OperationUninstall, n.cfg.uninstallBlobs(), func(s *credentials.Set) []string {
		return n.profile.uninstallArgs(n.cfg, s)
	})
	n.record(ctx, "uninstall", startTime, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "uninstall failed")
		n.logger.Error("uninstall failed", slog.String("error", err.Error()))

		n.mu.Lock()
		n.phase = previous
		n.lastError = err.Error()
		n.updatedAt = time.Now()
		n.mu.Unlock()
		return fmt.Errorf("uninstall failed: %w", err)
	}

	n.session.Clear()

	n.mu.Lock()
	n.result = extractor.Result{}
	n.phase = PhaseIdle
	n.lastError = ""
	n.updatedAt = time.Now()
	n.mu.Unlock()

	n.logger.Info("stack uninstalled", slog.Duration("duration", out.Duration), slog.String("output", out.Stdout))
	return nil
}

// Close releases the node. When removed is set the stack is uninstalled
// first, waiting for any running lifecycle operation. Failures are logged and
// never prevent closing.
func (n *Node) Close(ctx context.Context, removed bool) {
	if !removed {
		return
	}

	n.lifecycle.Lock()
	defer n.lifecycle.Unlock()

	if err := n.uninstall(ctx); err != nil {
		n.logger.Warn("uninstall on removal failed", slog.String("error", err.Error()))
	}
}

func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return Status{
		ID:        n.cfg.ID,
		Name:      n.cfg.Name,
		Kind:      n.cfg.Kind,
		Phase:     n.phase,
		Result:    n.result,
		LastError: n.lastError,
		UpdatedAt: n.updatedAt,
	}
}

// Info returns the connection metadata of the latest successful deploy.
// Unset fields are empty strings.
func (n *Node) Info() extractor.Result {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.result
}

func overrides(msg Message) auth.Overrides {
	return auth.Overrides{
		ClientSecret: msg.ClientSecret,
		Username:     msg.Username,
		Password:     msg.Password,
	}
}

func (n *Node) setPhase(phase Phase) {
	n.mu.Lock()
	n.phase = phase
	n.updatedAt = time.Now()
	n.mu.Unlock()
}

func (n *Node) fail(err error) {
	n.mu.Lock()
	n.phase = PhaseFailed
	n.lastError = err.Error()
	n.updatedAt = time.Now()
	n.mu.Unlock()
}

func (n *Node) record(ctx context.Context, op string, startTime time.Time, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	if n.opCounter != nil {
		n.opCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("kind", string(n.cfg.Kind)),
			attribute.String("status", status),
		))
	}
	if n.opDuration != nil {
		n.opDuration.Record(ctx, time.Since(startTime).Seconds(), metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("kind", string(n.cfg.Kind)),
		))
	}
}
