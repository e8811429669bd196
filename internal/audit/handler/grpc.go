// Package handler serves AuditService: paginated reads of the audit trail for admins.
package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"social-auth/backend/internal/audit/domain"
	"social-auth/backend/internal/platform/grpcjson"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "socialauth.audit.v1.AuditService"

const ListAuditLogsFullMethod = "/" + ServiceName + "/ListAuditLogs"

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// ListAuditLogsRequest filters on every non-empty field. Since is RFC 3339. PageToken is
// the opaque NextPageToken of a previous response.
type ListAuditLogsRequest struct {
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	Since     string `json:"since"`
	PageSize  int32  `json:"page_size"`
	PageToken string `json:"page_token"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ListAuditLogsResponse struct {
	Logs          []*AuditLog `json:"logs"`
	NextPageToken string      `json:"next_page_token,omitempty"`
}

// Lister reads audit logs. Implemented by auditrepo.Repository.
type Lister interface {
	List(ctx context.Context, filter domain.Filter, limit, offset int32) ([]*domain.AuditLog, error)
}

// AuditServiceServer is the server API for AuditService.
type AuditServiceServer interface {
	ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAuditLogs", Handler: grpcjson.Unary(ListAuditLogsFullMethod, AuditServiceServer.ListAuditLogs)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "socialauth/audit/v1/audit.proto",
}

// RegisterAuditServiceServer registers srv on s.
func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Server implements AuditServiceServer.
type Server struct {
	repo Lister
}

// NewServer returns a new Audit gRPC server. If repo is nil, all RPCs return Unimplemented.
func NewServer(repo Lister) *Server {
	return &Server{repo: repo}
}

// ListAuditLogs returns a page of audit logs, newest first.
func (s *Server) ListAuditLogs(ctx context.Context, req *ListAuditLogsRequest) (*ListAuditLogsResponse, error) {
	if s.repo == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	pageSize := int32(defaultPageSize)
	if req.PageSize > 0 {
		pageSize = req.PageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := int32(0)
	if tok := req.PageToken; tok != "" {
		if n, err := strconv.ParseInt(tok, 10, 32); err == nil && n >= 0 {
			offset = int32(n)
		}
	}
	filter := domain.Filter{
		UserID:   strings.TrimSpace(req.UserID),
		Action:   strings.TrimSpace(req.Action),
		Resource: strings.TrimSpace(req.Resource),
	}
	if since := strings.TrimSpace(req.Since); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return nil, status.Error(codes.InvalidArgument, "since must be an RFC 3339 timestamp")
		}
		filter.Since = t
	}
	list, err := s.repo.List(ctx, filter, pageSize, offset)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to list audit logs")
	}
	logs := make([]*AuditLog, len(list))
	for i := range list {
		logs[i] = domainAuditLogToWire(list[i])
	}
	nextToken := ""
	if len(list) == int(pageSize) {
		nextToken = strconv.Itoa(int(offset + pageSize))
	}
	return &ListAuditLogsResponse{Logs: logs, NextPageToken: nextToken}, nil
}

func domainAuditLogToWire(a *domain.AuditLog) *AuditLog {
	return &AuditLog{
		ID:        a.ID,
		UserID:    a.UserID,
		Action:    a.Action,
		Resource:  a.Resource,
		IP:        a.IP,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}
