package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey      = "classifier"
	serviceName       = "queuebreaker.classifier.v1.Classifier"
	jsonCodecName     = "json"
	methodGetMetadata = "/" + serviceName + "/GetMetadata"
	methodClassify    = "/" + serviceName + "/Classify"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "QUEUEBREAKER_CLASSIFIER",
	MagicCookieValue: "queuebreaker",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return jsonCodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Labels  []string `json:"labels"`
}

type ClassifyRequest struct {
	Snapshot string `json:"snapshot"`
}

type ClassifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type ClassifierServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	Classify(ctx context.Context, in *ClassifyRequest) (*ClassifyResponse, error)
}

type ClassifierClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	Classify(ctx context.Context, in *ClassifyRequest) (*ClassifyResponse, error)
}

type classifierClient struct {
	conn *grpc.ClientConn
}

func NewClassifierClient(conn *grpc.ClientConn) ClassifierClient {
	return &classifierClient{conn: conn}
}

func (c *classifierClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	if err := c.conn.Invoke(ctx, methodGetMetadata, &Empty{}, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *classifierClient) Classify(ctx context.Context, in *ClassifyRequest) (*ClassifyResponse, error) {
	out := &ClassifyResponse{}
	if err := c.conn.Invoke(ctx, methodClassify, in, out, grpc.CallContentSubtype(jsonCodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterClassifierServer(server grpc.ServiceRegistrar, impl ClassifierServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*ClassifierServer)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "GetMetadata",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &Empty{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.GetMetadata(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetMetadata}
					handler := func(ctx context.Context, req any) (any, error) {
						empty, ok := req.(*Empty)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.GetMetadata(ctx, empty)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
			{
				MethodName: "Classify",
				Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
					in := &ClassifyRequest{}
					if err := dec(in); err != nil {
						return nil, err
					}
					if interceptor == nil {
						return impl.Classify(ctx, in)
					}
					info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodClassify}
					handler := func(ctx context.Context, req any) (any, error) {
						inReq, ok := req.(*ClassifyRequest)
						if !ok {
							return nil, fmt.Errorf("invalid request type")
						}
						return impl.Classify(ctx, inReq)
					}
					return interceptor(ctx, in, info, handler)
				},
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "classifier-rpc-v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl ClassifierServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterClassifierServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewClassifierClient(conn), nil
}

func PluginMap(impl ClassifierServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
