package authgate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/authgate-io/authgate/store"
)

// QueryAudit lists audit records matching the filter, newest first.
// Requires audit.read.
func (e *Engine) QueryAudit(ctx context.Context, authCtx *AuthContext, q store.AuditQuery) ([]store.AuditLog, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "audit.read"); err != nil {
		return nil, err
	}

	logs, err := e.store.QueryAuditLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	return logs, nil
}

// ExportAuditCSV writes the matching audit records to w as CSV:
// header id,userId,action,ipAddress,userAgent,createdAt,metadata,
// every field double-quote escaped, metadata as a JSON string inside
// the quoted field, timestamps ISO-8601. The export is itself audited.
func (e *Engine) ExportAuditCSV(ctx context.Context, authCtx *AuthContext, q store.AuditQuery, w io.Writer) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if err := e.Authorize(authCtx, "audit.read"); err != nil {
		return err
	}

	logs, err := e.store.QueryAuditLogs(ctx, q)
	if err != nil {
		return fmt.Errorf("query audit: %w", err)
	}

	var b strings.Builder
	writeCSVRow(&b, []string{"id", "userId", "action", "ipAddress", "userAgent", "createdAt", "metadata"})
	for i := range logs {
		l := &logs[i]
		meta := "{}"
		if l.Metadata != nil {
			raw, err := json.Marshal(l.Metadata)
			if err == nil {
				meta = string(raw)
			}
		}
		writeCSVRow(&b, []string{
			l.ID,
			l.UserID,
			l.Action,
			l.IPAddress,
			l.UserAgent,
			l.CreatedAt.UTC().Format(time.RFC3339),
			meta,
		})
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}

	e.audit(ctx, ActionAuditExport, authCtx.User.ID, map[string]any{
		"format": "csv",
		"count":  len(logs),
	})
	e.metrics.Inc(MetricAuditExport)

	return nil
}

func writeCSVRow(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
