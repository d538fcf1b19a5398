// Package grpcserver exposes read access to the active backend over gRPC.
package grpcserver

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"poetryhub/internal/backend"
	"poetryhub/pkg/models"
)

type Server struct {
	Service backend.Service
}

var _ PoetryServiceServer = (*Server)(nil)

func NewServer(svc backend.Service) *Server {
	return &Server{Service: svc}
}

func (s *Server) ListPoems(ctx context.Context, _ *ListPoemsRequest) (*ListPoemsResponse, error) {
	items, err := s.Service.ListPoems(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if items == nil {
		items = []models.Poem{}
	}
	return &ListPoemsResponse{Backend: s.Service.ID(), Items: items}, nil
}

func (s *Server) GetPoem(ctx context.Context, req *GetPoemRequest) (*GetPoemResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	p, err := s.Service.GetPoem(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return nil, toStatus(err)
	}
	return &GetPoemResponse{Backend: s.Service.ID(), Poem: p}, nil
}

func (s *Server) ListTranslations(ctx context.Context, _ *ListTranslationsRequest) (*ListTranslationsResponse, error) {
	items, err := s.Service.ListTranslations(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	if items == nil {
		items = []models.TranslationSummary{}
	}
	return &ListTranslationsResponse{Backend: s.Service.ID(), Items: items}, nil
}

func (s *Server) GetTranslation(ctx context.Context, req *GetTranslationRequest) (*GetTranslationResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	t, err := s.Service.GetTranslation(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return nil, toStatus(err)
	}

	resp := &GetTranslationResponse{
		Backend:   s.Service.ID(),
		ID:        t.ID,
		Title:     t.Title,
		CreatedAt: t.CreatedAt,
		State:     t.State().String(),
	}
	switch t.State() {
	case models.StateDocument:
		resp.Document = t.Document.Data
		resp.ContentType = t.Document.ContentType
	case models.StateText:
		resp.Content = t.Content
	}
	return resp, nil
}

// Code maps an error kind to a gRPC status code.
func Code(k backend.Kind) codes.Code {
	switch k {
	case backend.KindNotFound:
		return codes.NotFound
	case backend.KindValidationFailed:
		return codes.InvalidArgument
	case backend.KindUnauthorized:
		return codes.Unauthenticated
	case backend.KindConflict:
		return codes.AlreadyExists
	case backend.KindDecodeFailed:
		return codes.FailedPrecondition
	case backend.KindBackendUnreachable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func toStatus(err error) error {
	kind := backend.KindOf(err)
	if kind == "" {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(Code(kind), err.Error())
}
