package out

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	classifierrpc "queuebreaker/internal/modules/classifier/adapter/out/rpc"
	"queuebreaker/internal/modules/classifier/domain"
	classifierout "queuebreaker/internal/modules/classifier/port/out"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost launches the classifier binary for each call and kills it after.
type GRPCHost struct {
	logOutput io.Writer
}

func NewGRPCHost() classifierout.Host {
	return &GRPCHost{logOutput: io.Discard}
}

// NewGRPCHostWithLog forwards plugin process logs to w.
func NewGRPCHostWithLog(w io.Writer) classifierout.Host {
	return &GRPCHost{logOutput: w}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	_, err := h.GetMetadata(ctx, manifest)
	return err
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return domain.Metadata{}, err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	meta, err := client.GetMetadata(callCtx)
	if err != nil {
		return domain.Metadata{}, fmt.Errorf("get metadata: %w", err)
	}
	return domain.Metadata{Name: meta.Name, Version: meta.Version, Labels: meta.Labels}, nil
}

func (h *GRPCHost) Classify(ctx context.Context, manifest domain.Manifest, snapshot string) (string, error) {
	client, closeFn, err := h.connect(manifest)
	if err != nil {
		return "", err
	}
	defer closeFn()

	callCtx, cancel := callContext(ctx, defaultCallTimeout)
	defer cancel()
	response, err := client.Classify(callCtx, &classifierrpc.ClassifyRequest{Snapshot: snapshot})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: classify", domain.ErrClassifierTimeout)
		}
		return "", fmt.Errorf("classify: %w", err)
	}
	return response.Label, nil
}

func (h *GRPCHost) connect(manifest domain.Manifest) (classifierrpc.ClassifierClient, func(), error) {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  classifierrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          classifierrpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger:           hclog.New(&hclog.LoggerOptions{Name: "classifier", Output: h.logOutput, Level: hclog.Warn}),
	})
	closeFn := func() { client.Kill() }

	rpcClient, err := client.Client()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("start classifier: %w", err)
	}
	raw, err := rpcClient.Dispense(classifierrpc.PluginMapKey)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("dispense classifier: %w", err)
	}
	typed, ok := raw.(classifierrpc.ClassifierClient)
	if !ok {
		closeFn()
		return nil, nil, fmt.Errorf("classifier rpc client type mismatch")
	}
	return typed, closeFn, nil
}

func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
