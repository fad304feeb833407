// Copyright (c) 2025 Fraunhofer AISEC
// Fraunhofer-Gesellschaft zur Foerderung der angewandten Forschung e.V.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/openattest/ccverify/claims"
	"github.com/openattest/ccverify/internal"
	"github.com/openattest/ccverify/orchestrator"
)

const (
	inputFlag      = "in"
	formatFlag     = "format"
	sourceFlag     = "source"
	rootCaFlag     = "root-ca"
	logLevelFlag   = "log-level"
	ignoreTimeFlag = "ignore-time"
)

var (
	logLevels = map[string]logrus.Level{
		"panic": logrus.PanicLevel,
		"fatal": logrus.FatalLevel,
		"error": logrus.ErrorLevel,
		"warn":  logrus.WarnLevel,
		"info":  logrus.InfoLevel,
		"debug": logrus.DebugLevel,
		"trace": logrus.TraceLevel,
	}

	log = logrus.WithField("service", "ccverify")
)

func main() {
	cmd := &cli.Command{
		Name:  "ccverify",
		Usage: "Verify confidential computing remote attestation evidence (Intel SGX, AMD SEV-SNP, Open Enclave, Azure ACI/UVM)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  logLevelFlag,
				Usage: fmt.Sprintf("set log level: %v", strings.Join(keys(logLevels), ",")),
				Value: "info",
			},
		},
		Commands: []*cli.Command{
			verifyCommand,
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var verifyCommand = &cli.Command{
	Name:  "verify",
	Usage: "read an attestation envelope from a file or stdin and print the verification result as JSON",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  inputFlag,
			Usage: "path to the encoded claims.Envelope; reads stdin if unset",
		},
		&cli.StringFlag{
			Name:  formatFlag,
			Usage: "envelope encoding: json or cbor",
			Value: "json",
		},
		&cli.StringFlag{
			Name:  sourceFlag,
			Usage: "override the envelope's source: SGX, SEV_SNP, OPEN_ENCLAVE, ACI",
		},
		&cli.StringFlag{
			Name:  rootCaFlag,
			Usage: "path to a PEM-encoded root CA certificate, overriding the envelope's configured trust anchor",
		},
		&cli.BoolFlag{
			Name:  ignoreTimeFlag,
			Usage: "skip certificate validity and CRL freshness checks",
		},
	},
	Action: runVerify,
}

func keys(m map[string]logrus.Level) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func setLogLevel(cmd *cli.Command) {
	level, ok := logLevels[strings.ToLower(cmd.String(logLevelFlag))]
	if !ok {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func runVerify(ctx context.Context, cmd *cli.Command) error {
	setLogLevel(cmd)

	raw, err := readInput(cmd.String(inputFlag))
	if err != nil {
		return fmt.Errorf("failed to read envelope: %w", err)
	}

	env, err := decodeEnvelope(raw, cmd.String(formatFlag))
	if err != nil {
		return fmt.Errorf("failed to decode envelope: %w", err)
	}
	if s := cmd.String(sourceFlag); s != "" {
		env.Source = claims.Source(s)
	}

	var opts claims.Options
	opts.IgnoreTime = cmd.Bool(ignoreTimeFlag)

	cfg := orchestrator.Config{}
	if p := cmd.String(rootCaFlag); p != "" {
		cert, err := readRootCA(p)
		if err != nil {
			return fmt.Errorf("failed to read root CA: %w", err)
		}
		cfg.RootCAs = map[claims.Source][]*x509.Certificate{env.Source: {cert}}
	}

	o := orchestrator.New(cfg)

	id, err := o.Submit(ctx, env, opts)
	if err != nil {
		return fmt.Errorf("failed to submit verification request: %w", err)
	}

	result := waitForResult(o, id)
	o.Erase(id)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	fmt.Println(string(out))

	if result.Err != nil {
		os.Exit(1)
	}
	return nil
}

// waitForResultPollInterval is how often waitForResult re-checks the
// orchestrator's request table while a verification is in flight.
const waitForResultPollInterval = 10 * time.Millisecond

// waitForResult polls the orchestrator until the request leaves the
// Submitted/FetchingEndorsements/Verifying states. Verification runs
// entirely as CPU work plus blocking HTTP GETs within the submitted
// goroutine, so this never polls for long.
func waitForResult(o *orchestrator.Orchestrator, id orchestrator.RequestID) *orchestrator.Result {
	for {
		result, state, err := o.Result(id)
		if err != nil {
			return &orchestrator.Result{Err: err}
		}
		if state == orchestrator.StateComplete || state == orchestrator.StateFailed {
			return result
		}
		time.Sleep(waitForResultPollInterval)
	}
}

// decodeEnvelope decodes a caller-supplied envelope in either of the
// two wire formats claims.Envelope is tagged for. CBOR is the compact
// form used by UVM attestation agents and CoAP transports; JSON is the
// default for local testing.
func decodeEnvelope(raw []byte, format string) (claims.Envelope, error) {
	switch strings.ToLower(format) {
	case "", "json":
		var env claims.Envelope
		err := json.Unmarshal(raw, &env)
		return env, err
	case "cbor":
		return claims.UnmarshalEnvelopeCBOR(raw)
	default:
		return claims.Envelope{}, fmt.Errorf("unsupported envelope format %q", format)
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return readAllStdin()
	}
	return os.ReadFile(path)
}

func readAllStdin() ([]byte, error) {
	data, err := os.ReadFile("/dev/stdin")
	if err != nil {
		return nil, err
	}
	return data, nil
}

func readRootCA(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return internal.ParseCert(data)
}
