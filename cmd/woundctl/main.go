// Command woundctl talks to the wound risk service from a terminal.
//
//	woundctl contract
//	woundctl assess -image wound.jpg [-addr host:50051] [-reported_pain] ...
//
// assess falls back to a local estimate when the service cannot answer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/example/woundrisk/internal/apperr"
	"github.com/example/woundrisk/internal/assessor"
	"github.com/example/woundrisk/internal/fallback"
	"github.com/example/woundrisk/internal/grpcapi"
	"github.com/example/woundrisk/internal/logging"
	"github.com/example/woundrisk/internal/risk"
	"github.com/example/woundrisk/internal/weights"
)

const usage = `usage: woundctl <command> [flags]

commands:
  contract   print the shared response contract as JSON
  assess     assess an image through the service, with a local fallback
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	switch args[0] {
	case "contract":
		return runContract(stdout, stderr)
	case "assess":
		return runAssess(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}
}

func runContract(stdout, stderr io.Writer) int {
	if err := writeJSON(stdout, risk.Contract()); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

type assessOutput struct {
	Source       string           `json:"source"`
	AssessmentID string           `json:"assessment_id,omitempty"`
	Assessment   *risk.Assessment `json:"assessment"`
}

func runAssess(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fs.SetOutput(stderr)
	imagePath := fs.String("image", "", "path of the image to assess")
	addr := fs.String("addr", envOr("WOUNDRISK_GRPC_ADDR", "localhost:50051"), "gRPC address of the service")
	token := fs.String("token", os.Getenv("WOUNDRISK_TOKEN"), "bearer token sent to the service")
	weightsPath := fs.String("weights", "", "weight file for the local fallback (built-in weights when empty)")
	timeout := fs.Duration("timeout", 10*time.Second, "service call timeout")
	offline := fs.Bool("offline", false, "skip the service and use the local estimate")
	logLevel := fs.String("log-level", "warn", "log level")
	flags := make(map[string]*bool, 5)
	for _, name := range risk.SymptomSignalNames() {
		flags[name] = fs.Bool(name, false, "self-reported "+risk.Label(name))
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *imagePath == "" {
		fmt.Fprintln(stderr, "assess: -image is required")
		return 2
	}

	logger, err := logging.NewLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer logger.Sync() //nolint:errcheck

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(stderr, "assess: %v\n", err)
		return 1
	}
	reported := make(map[string]bool, len(flags))
	for name, v := range flags {
		reported[name] = *v
	}
	symptoms := risk.SymptomsFromFlags(reported)

	local, err := localEstimator(*weightsPath)
	if err != nil {
		fmt.Fprintf(stderr, "assess: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	out := assessOutput{Source: "local_fallback"}
	if *offline {
		out.Assessment, err = local.Assess(ctx, image, symptoms)
	} else {
		client, dialErr := grpcapi.Dial(*addr, *token, logger)
		if dialErr != nil {
			return fail(stderr, dialErr)
		}
		defer client.Close()

		remote := assessor.Func(func(ctx context.Context, image []byte, symptoms risk.Symptoms) (*risk.Assessment, error) {
			id, result, err := client.AssessWithID(ctx, image, symptoms)
			if err == nil {
				out.Source = "service"
				out.AssessmentID = id
			}
			return result, err
		})
		a := assessor.WithFallback(remote, local, func(err error) {
			logger.Warn("service unavailable, using local estimate", zap.String("addr", *addr), zap.Error(err))
		})
		out.Assessment, err = a.Assess(ctx, image, symptoms)
	}
	if err != nil {
		return fail(stderr, err)
	}
	if err := writeJSON(stdout, out); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func localEstimator(path string) (*fallback.Estimator, error) {
	if path == "" {
		return fallback.New(nil), nil
	}
	cfg, err := weights.Load(path)
	if err != nil {
		return nil, err
	}
	return fallback.New(cfg), nil
}

func fail(stderr io.Writer, err error) int {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		fmt.Fprintf(stderr, "assess: %s: %s\n", appErr.Kind, apperr.PublicMessage(err))
		return 1
	}
	fmt.Fprintf(stderr, "assess: %v\n", err)
	return 1
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
