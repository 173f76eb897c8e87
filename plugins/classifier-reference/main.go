package main

import (
	"context"
	"strings"

	"github.com/hashicorp/go-plugin"

	classifierrpc "queuebreaker/internal/modules/classifier/adapter/out/rpc"
)

// rules are checked in order; the first phrase found in the snapshot wins.
var rules = []struct {
	label   string
	phrases []string
}{
	{"busy", []string{"busy", "all circuits", "try again later"}},
	{"voicemail", []string{"voicemail", "leave a message", "after the tone"}},
	{"no_answer", []string{"no answer", "not available", "call ended"}},
	{"human", []string{"connected", "on call", "00:0"}},
}

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *classifierrpc.Empty) (*classifierrpc.Metadata, error) {
	return &classifierrpc.Metadata{
		Name:    "classifier-reference",
		Version: "1.0.0",
		Labels:  []string{"unknown", "busy", "voicemail", "human", "no_answer"},
	}, nil
}

func (s *server) Classify(_ context.Context, in *classifierrpc.ClassifyRequest) (*classifierrpc.ClassifyResponse, error) {
	text := strings.ToLower(in.Snapshot)
	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			if strings.Contains(text, phrase) {
				return &classifierrpc.ClassifyResponse{Label: rule.label, Confidence: 0.6}, nil
			}
		}
	}
	return &classifierrpc.ClassifyResponse{Label: "unknown"}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: classifierrpc.HandshakeConfig,
		Plugins:         classifierrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
