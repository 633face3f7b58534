package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/terabiome/stackbuilder/internal/adapter"
	"github.com/terabiome/stackbuilder/internal/api"
	"github.com/terabiome/stackbuilder/internal/config"
	"github.com/terabiome/stackbuilder/internal/node"
	"github.com/terabiome/stackbuilder/pkg/httpclient"
	"github.com/terabiome/stackbuilder/pkg/logger"
	"github.com/terabiome/stackbuilder/pkg/telemetry"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var (
		cfg *config.Config
		log *slog.Logger
		tel *telemetry.Telemetry
	)

	formatFlag := &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"o"},
		Usage:   "Output format: table|json|yaml",
		Value:   formatTable,
	}

	app := &cli.App{
		Name:                 "stackbuilder",
		Usage:                "Deploy and operate federated catalogue and orchestration engine stacks",
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{"STACKBUILDER_CONFIG"},
			},
		},
		Before: func(cliCtx *cli.Context) error {
			var err error
			cfg, err = config.Load(cliCtx.String("config"))
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}

			log = logger.New(cfg.LogLevel, cfg.LogFormat)
			log.Debug("stackbuilder starting",
				slog.String("log_level", cfg.LogLevel),
				slog.String("log_format", cfg.LogFormat),
				slog.Bool("telemetry_enabled", cfg.TelemetryEnabled),
				slog.Int("nodes", len(cfg.Nodes)),
			)

			if cfg.InsecureSkipVerify {
				log.Warn("TLS certificate verification is disabled for token and service requests")
			}

			if cfg.TelemetryEnabled {
				tel, err = telemetry.Initialize("stackbuilder")
				if err != nil {
					return fmt.Errorf("failed to initialize telemetry: %w", err)
				}
				log.Info("telemetry initialized")
			} else {
				log.Debug("telemetry disabled")
			}
			return nil
		},
		After: func(cliCtx *cli.Context) error {
			if tel == nil {
				return nil
			}
			log.Info("shutting down telemetry")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tel.Shutdown(shutdownCtx); err != nil {
				log.Error("failed to shutdown telemetry", slog.String("error", err.Error()))
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start HTTP API server for the configured nodes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "address",
						Aliases: []string{"a"},
						Usage:   "Server address, overrides listen_address",
					},
				},
				Action: func(cliCtx *cli.Context) error {
					address := cliCtx.String("address")
					if address == "" {
						address = cfg.ListenAddress
					}
					return runServer(ctx, cfg, log, address)
				},
			},
			{
				Name:  "nodes",
				Usage: "List configured nodes, or live nodes of a running server",
				Flags: []cli.Flag{
					formatFlag,
					&cli.StringFlag{
						Name:  "server",
						Usage: "Base URL of a running server",
					},
				},
				Action: func(cliCtx *cli.Context) error {
					format := cliCtx.String("format")
					if err := validateFormat(format); err != nil {
						return err
					}

					if server := cliCtx.String("server"); server != "" {
						statuses, err := fetchStatuses(ctx, cfg, server)
						if err != nil {
							return err
						}
						return printStatuses(os.Stdout, format, statuses)
					}

					reg, err := initRegistry(cfg, log)
					if err != nil {
						return err
					}
					return printStatuses(os.Stdout, format, adapter.AdaptStatuses(reg.List()))
				},
			},
			{
				Name:      "deploy",
				Usage:     "Deploy the stack of a node",
				ArgsUsage: "<node>",
				Flags:     []cli.Flag{formatFlag},
				Action: func(cliCtx *cli.Context) error {
					format := cliCtx.String("format")
					if err := validateFormat(format); err != nil {
						return err
					}

					n, err := lookupNode(cfg, cliCtx.Args().First(), log)
					if err != nil {
						return err
					}

					s := newSpinner(format, fmt.Sprintf("Deploying %s...", n.ID()))
					out, err := n.Deploy(ctx)
					s.Stop()
					if err != nil {
						return fmt.Errorf("deploy of %s failed: %w", n.ID(), err)
					}

					if !n.SupportsServiceCalls() {
						color.Green("Stack %s deployed", n.ID())
						return nil
					}
					resp := adapter.AdaptOutput(out)
					info, _ := resp.Payload.(api.InfoResponse)
					return printInfo(os.Stdout, format, info)
				},
			},
			{
				Name:      "uninstall",
				Usage:     "Remove the stack of a node",
				ArgsUsage: "<node>",
				Action: func(cliCtx *cli.Context) error {
					n, err := lookupNode(cfg, cliCtx.Args().First(), log)
					if err != nil {
						return err
					}

					s := newSpinner(formatTable, fmt.Sprintf("Uninstalling %s...", n.ID()))
					err = n.Uninstall(ctx)
					s.Stop()
					if err != nil {
						return err
					}

					color.Green("Stack %s uninstalled", n.ID())
					return nil
				},
			},
			{
				Name:      "call",
				Usage:     "Call the API of a deployed catalogue",
				ArgsUsage: "<node>",
				Flags: []cli.Flag{
					formatFlag,
					&cli.StringFlag{Name: "topic", Aliases: []string{"t"}, Usage: "Service path, e.g. /self-descriptions", Required: true},
					&cli.StringFlag{Name: "method", Aliases: []string{"X"}, Usage: "HTTP method, POST with payload and GET without by default"},
					&cli.StringFlag{Name: "payload", Aliases: []string{"d"}, Usage: "JSON request body, @file reads it from a file"},
					&cli.StringFlag{Name: "client-secret", Usage: "Client secret printed by deploy", EnvVars: []string{"STACKBUILDER_CLIENT_SECRET"}, Required: true},
					&cli.StringFlag{Name: "username", Usage: "Service user, the configured one by default"},
					&cli.StringFlag{Name: "password", Usage: "Service password, the configured one by default", EnvVars: []string{"STACKBUILDER_SERVICE_PASSWORD"}},
				},
				Action: func(cliCtx *cli.Context) error {
					format := cliCtx.String("format")
					if err := validateFormat(format); err != nil {
						return err
					}

					n, err := lookupNode(cfg, cliCtx.Args().First(), log)
					if err != nil {
						return err
					}

					payload, err := readPayload(cliCtx.String("payload"))
					if err != nil {
						return err
					}

					out, err := n.Call(ctx, node.Message{
						Topic:        cliCtx.String("topic"),
						Method:       cliCtx.String("method"),
						Payload:      payload,
						ClientSecret: cliCtx.String("client-secret"),
						Username:     cliCtx.String("username"),
						Password:     cliCtx.String("password"),
					})
					if err != nil {
						return err
					}
					return printService(os.Stdout, format, adapter.AdaptOutput(out).Response)
				},
			},
			{
				Name:      "token",
				Usage:     "Print an access token of a deployed catalogue",
				ArgsUsage: "<node>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "admin", Usage: "Issue an administrator token from the master realm"},
					&cli.StringFlag{Name: "client-secret", Usage: "Client secret for service tokens", EnvVars: []string{"STACKBUILDER_CLIENT_SECRET"}},
					&cli.StringFlag{Name: "username", Usage: "Service user, the configured one by default"},
					&cli.StringFlag{Name: "password", Usage: "Service password, the configured one by default", EnvVars: []string{"STACKBUILDER_SERVICE_PASSWORD"}},
				},
				Action: func(cliCtx *cli.Context) error {
					n, err := lookupNode(cfg, cliCtx.Args().First(), log)
					if err != nil {
						return err
					}

					var token string
					if cliCtx.Bool("admin") {
						token, err = n.AdminToken(ctx)
					} else {
						token, err = n.ServiceToken(ctx, node.Message{
							ClientSecret: cliCtx.String("client-secret"),
							Username:     cliCtx.String("username"),
							Password:     cliCtx.String("password"),
						})
					}
					if err != nil {
						return err
					}

					fmt.Println(token)
					return nil
				},
			},
			{
				Name:      "status",
				Usage:     "Show connection metadata of a node served by a running server",
				ArgsUsage: "<node>",
				Flags: []cli.Flag{
					formatFlag,
					&cli.StringFlag{
						Name:  "server",
						Usage: "Base URL of a running server",
						Value: "http://localhost:8080",
					},
				},
				Action: func(cliCtx *cli.Context) error {
					format := cliCtx.String("format")
					if err := validateFormat(format); err != nil {
						return err
					}

					ref := cliCtx.Args().First()
					if ref == "" {
						return errors.New("node id or name is required")
					}
					server := cliCtx.String("server")
					id, err := resolveServerID(ctx, cfg, server, ref)
					if err != nil {
						return err
					}

					info, err := fetchInfo(ctx, cfg, server, id)
					if err != nil {
						return err
					}
					return printInfo(os.Stdout, format, *info)
				},
			},
			{
				Name:  "preflight",
				Usage: "Check that this host can run the provisioning scripts",
				Flags: []cli.Flag{formatFlag},
				Action: func(cliCtx *cli.Context) error {
					format := cliCtx.String("format")
					if err := validateFormat(format); err != nil {
						return err
					}
					return runPreflight(ctx, cfg, log, format)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		if log != nil {
			log.Error("command failed", slog.String("error", err.Error()))
		} else {
			slog.Error("command failed", slog.String("error", err.Error()))
		}
		os.Exit(1)
	}
}

// readPayload returns raw JSON from the flag value or, with a leading @,
// from the named file.
func readPayload(value string) (json.RawMessage, error) {
	if value == "" {
		return nil, nil
	}

	raw := []byte(value)
	if strings.HasPrefix(value, "@") {
		var err error
		if raw, err = os.ReadFile(strings.TrimPrefix(value, "@")); err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid JSON")
	}
	return raw, nil
}

// resolveServerID maps ref to the id the server knows. Nodes without a
// configured id get a fresh uuid in every process, so names are looked up in
// the server's node list.
func resolveServerID(ctx context.Context, cfg *config.Config, server, ref string) (string, error) {
	if nc, ok := cfg.FindNode(ref); ok && nc.ID != "" {
		return nc.ID, nil
	}

	statuses, err := fetchStatuses(ctx, cfg, server)
	if err != nil {
		return "", err
	}
	return matchNode(statuses, ref), nil
}

// matchNode prefers an exact id match, then a name match, else returns ref.
func matchNode(statuses []api.NodeStatus, ref string) string {
	for _, st := range statuses {
		if st.ID == ref {
			return st.ID
		}
	}
	for _, st := range statuses {
		if st.Name != "" && st.Name == ref {
			return st.ID
		}
	}
	return ref
}

func fetchInfo(ctx context.Context, cfg *config.Config, server, id string) (*api.InfoResponse, error) {
	endpoint, err := url.JoinPath(server, "federated-catalogue", "info", id)
	if err != nil {
		return nil, err
	}

	resp, err := getJSON(ctx, cfg, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Error == "" {
			failure.Error = resp.Status
		}
		return nil, fmt.Errorf("status of %s: %s", id, failure.Error)
	}

	var info api.InfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &info, nil
}

func fetchStatuses(ctx context.Context, cfg *config.Config, server string) ([]api.NodeStatus, error) {
	endpoint, err := url.JoinPath(server, "api", "v1", "nodes")
	if err != nil {
		return nil, err
	}

	resp, err := getJSON(ctx, cfg, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Body    []api.NodeStatus `json:"body"`
		Message string           `json:"message"`
		Error   string           `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode node list: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %s", envelope.Message, envelope.Error)
	}
	return envelope.Body, nil
}

func getJSON(ctx context.Context, cfg *config.Config, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return httpclient.New(cfg.InsecureSkipVerify, cfg.HTTPTimeout).Do(req)
}
