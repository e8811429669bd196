package handler

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	auditdomain "social-auth/backend/internal/audit/domain"
)

// mockAuditRepo implements Lister for tests. logs are stored newest first.
type mockAuditRepo struct {
	logs       []*auditdomain.AuditLog
	listErr    error
	lastFilter auditdomain.Filter
	lastLimit  int32
}

func (m *mockAuditRepo) List(ctx context.Context, filter auditdomain.Filter, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.lastFilter = filter
	m.lastLimit = limit
	var filtered []*auditdomain.AuditLog
	for _, l := range m.logs {
		if filter.Matches(l) {
			filtered = append(filtered, l)
		}
	}
	if int(offset) >= len(filtered) {
		return nil, nil
	}
	end := int(offset + limit)
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], nil
}

func seedLogs(n int) []*auditdomain.AuditLog {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	logs := make([]*auditdomain.AuditLog, n)
	for i := 0; i < n; i++ {
		user := "user-1"
		if i%2 == 1 {
			user = "user-2"
		}
		logs[i] = &auditdomain.AuditLog{
			ID:        "log-" + strconv.Itoa(i),
			UserID:    user,
			Action:    "login_success",
			Resource:  "session",
			IP:        "10.0.0.1",
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return logs
}

func TestListAuditLogs_Pagination(t *testing.T) {
	repo := &mockAuditRepo{logs: seedLogs(5)}
	srv := NewServer(repo)
	ctx := context.Background()

	first, err := srv.ListAuditLogs(ctx, &ListAuditLogsRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(first.Logs) != 2 || first.Logs[0].ID != "log-0" {
		t.Fatalf("first page = %+v", first.Logs)
	}
	if first.NextPageToken != "2" {
		t.Errorf("next token = %q, want %q", first.NextPageToken, "2")
	}

	last, err := srv.ListAuditLogs(ctx, &ListAuditLogsRequest{PageSize: 2, PageToken: "4"})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(last.Logs) != 1 || last.NextPageToken != "" {
		t.Errorf("last page = %d logs, token %q", len(last.Logs), last.NextPageToken)
	}
}

func TestListAuditLogs_FilterAndDefaults(t *testing.T) {
	repo := &mockAuditRepo{logs: seedLogs(6)}
	srv := NewServer(repo)

	resp, err := srv.ListAuditLogs(context.Background(), &ListAuditLogsRequest{UserID: " user-2 ", PageToken: "bogus"})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if repo.lastFilter.UserID != "user-2" || repo.lastLimit != defaultPageSize {
		t.Errorf("repo called with filter %+v limit %d", repo.lastFilter, repo.lastLimit)
	}
	if len(resp.Logs) != 3 {
		t.Errorf("logs = %d, want 3", len(resp.Logs))
	}
	for _, l := range resp.Logs {
		if l.UserID != "user-2" {
			t.Errorf("log %s has user %q", l.ID, l.UserID)
		}
	}

	if _, err := srv.ListAuditLogs(context.Background(), &ListAuditLogsRequest{PageSize: 1000}); err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if repo.lastLimit != maxPageSize {
		t.Errorf("limit = %d, want clamp to %d", repo.lastLimit, maxPageSize)
	}
}

func TestListAuditLogs_ActionAndSince(t *testing.T) {
	logs := seedLogs(4)
	logs[1].Action = "token_replay"
	logs[3].Action = "token_replay"
	repo := &mockAuditRepo{logs: logs}
	srv := NewServer(repo)

	// seedLogs spaces entries one minute apart going back from 12:00.
	resp, err := srv.ListAuditLogs(context.Background(), &ListAuditLogsRequest{
		Action: "token_replay",
		Since:  "2025-06-01T11:58:00Z",
	})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(resp.Logs) != 1 || resp.Logs[0].ID != "log-1" {
		t.Fatalf("logs = %+v, want only log-1", resp.Logs)
	}
	if repo.lastFilter.Since.IsZero() {
		t.Error("Since should be passed to the repository")
	}

	_, err = srv.ListAuditLogs(context.Background(), &ListAuditLogsRequest{Since: "yesterday"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad since: status code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestListAuditLogs_Errors(t *testing.T) {
	if _, err := NewServer(nil).ListAuditLogs(context.Background(), &ListAuditLogsRequest{}); status.Code(err) != codes.Unimplemented {
		t.Errorf("nil repo: status code = %v, want Unimplemented", status.Code(err))
	}
	repo := &mockAuditRepo{listErr: errors.New("db down")}
	if _, err := NewServer(repo).ListAuditLogs(context.Background(), &ListAuditLogsRequest{}); status.Code(err) != codes.Internal {
		t.Errorf("repo error: status code = %v, want Internal", status.Code(err))
	}
}
