package grpcserver

import (
	"context"
	"time"

	"google.golang.org/grpc"

	"poetryhub/internal/backend"
	"poetryhub/pkg/models"
)

const ServiceName = "poetry.PoetryService"

type ListPoemsRequest struct{}

type ListPoemsResponse struct {
	Backend backend.ID    `json:"backend"`
	Items   []models.Poem `json:"items"`
}

type GetPoemRequest struct {
	ID string `json:"id"`
}

type GetPoemResponse struct {
	Backend backend.ID  `json:"backend"`
	Poem    models.Poem `json:"poem"`
}

type ListTranslationsRequest struct{}

type ListTranslationsResponse struct {
	Backend backend.ID                  `json:"backend"`
	Items   []models.TranslationSummary `json:"items"`
}

type GetTranslationRequest struct {
	ID string `json:"id"`
}

// GetTranslationResponse carries the body the translation has, if any.
// State is "document", "text" or "empty".
type GetTranslationResponse struct {
	Backend     backend.ID `json:"backend"`
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	CreatedAt   time.Time  `json:"createdAt"`
	State       string     `json:"state"`
	Content     string     `json:"content,omitempty"`
	Document    []byte     `json:"document,omitempty"`
	ContentType string     `json:"contentType,omitempty"`
}

// Translation rebuilds the canonical value.
func (r *GetTranslationResponse) Translation() models.Translation {
	t := models.Translation{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, Content: r.Content}
	if len(r.Document) > 0 {
		t.Document = &models.Document{Data: r.Document, ContentType: r.ContentType}
	}
	return t
}

// PoetryServiceServer is the read-only service over the active backend.
type PoetryServiceServer interface {
	ListPoems(context.Context, *ListPoemsRequest) (*ListPoemsResponse, error)
	GetPoem(context.Context, *GetPoemRequest) (*GetPoemResponse, error)
	ListTranslations(context.Context, *ListTranslationsRequest) (*ListTranslationsResponse, error)
	GetTranslation(context.Context, *GetTranslationRequest) (*GetTranslationResponse, error)
}

func RegisterPoetryServiceServer(s grpc.ServiceRegistrar, srv PoetryServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PoetryServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListPoems", Handler: unary("ListPoems", func(s PoetryServiceServer, ctx context.Context, in *ListPoemsRequest) (any, error) {
			return s.ListPoems(ctx, in)
		})},
		{MethodName: "GetPoem", Handler: unary("GetPoem", func(s PoetryServiceServer, ctx context.Context, in *GetPoemRequest) (any, error) {
			return s.GetPoem(ctx, in)
		})},
		{MethodName: "ListTranslations", Handler: unary("ListTranslations", func(s PoetryServiceServer, ctx context.Context, in *ListTranslationsRequest) (any, error) {
			return s.ListTranslations(ctx, in)
		})},
		{MethodName: "GetTranslation", Handler: unary("GetTranslation", func(s PoetryServiceServer, ctx context.Context, in *GetTranslationRequest) (any, error) {
			return s.GetTranslation(ctx, in)
		})},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "poetry.proto",
}

// unary adapts a typed method to grpc's method handler signature, running
// any configured interceptor.
func unary[Req any](method string, call func(PoetryServiceServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(PoetryServiceServer)
		if interceptor == nil {
			return call(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

// Client calls PoetryService with the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...)
}

func (c *Client) ListPoems(ctx context.Context, opts ...grpc.CallOption) (*ListPoemsResponse, error) {
	out := new(ListPoemsResponse)
	return out, c.invoke(ctx, "ListPoems", &ListPoemsRequest{}, out, opts...)
}

func (c *Client) GetPoem(ctx context.Context, id string, opts ...grpc.CallOption) (*GetPoemResponse, error) {
	out := new(GetPoemResponse)
	return out, c.invoke(ctx, "GetPoem", &GetPoemRequest{ID: id}, out, opts...)
}

func (c *Client) ListTranslations(ctx context.Context, opts ...grpc.CallOption) (*ListTranslationsResponse, error) {
	out := new(ListTranslationsResponse)
	return out, c.invoke(ctx, "ListTranslations", &ListTranslationsRequest{}, out, opts...)
}

func (c *Client) GetTranslation(ctx context.Context, id string, opts ...grpc.CallOption) (*GetTranslationResponse, error) {
	out := new(GetTranslationResponse)
	return out, c.invoke(ctx, "GetTranslation", &GetTranslationRequest{ID: id}, out, opts...)
}
