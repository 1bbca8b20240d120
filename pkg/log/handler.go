package log

import (
	"context"
	"fmt"
	"log/slog"

	crdb "github.com/cockroachdb/errors"

	"github.com/YuminosukeSato/scigo-testng/pkg/errors"
)

// ErrFmtHandler decorates records that carry an ErrAttr. Harness outcome
// errors ([INVALID], [NOT IMPL], header errors) get an error.type attribute
// and no stack trace; any other error gets the cockroachdb/errors stack.
type ErrFmtHandler struct {
	handler slog.Handler
}

// WrapByErrFmtHandler wraps handler with ErrFmtHandler.
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{handler: handler}
}

func (eh *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return eh.handler.Enabled(ctx, l)
}

func (eh *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var found error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		found, _ = attr.Value.Any().(error)
		return false
	})
	if found == nil {
		return eh.handler.Handle(ctx, r)
	}

	if kind := outcomeKind(found); kind != "" {
		r.AddAttrs(slog.String(ErrorTypeKey, kind))
	} else if st := extractStacktrace(found); st != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, st))
	}
	return eh.handler.Handle(ctx, r)
}

func (eh *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithAttrs(attrs)}
}

func (eh *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{handler: eh.handler.WithGroup(g)}
}

// outcomeKind names the harness error class of err, or "" for other errors.
func outcomeKind(err error) string {
	var (
		inv *errors.InvalidTestCaseError
		ni  *errors.NotImplementedError
		he  *errors.HeaderError
	)
	switch {
	case errors.As(err, &inv):
		return "InvalidTestCaseError"
	case errors.As(err, &ni):
		return "NotImplementedError"
	case errors.As(err, &he):
		return "HeaderError"
	}
	return ""
}

// extractStacktrace prefers the safe details recorded by cockroachdb/errors
// and falls back to the verbose format when the error carries a stack.
func extractStacktrace(err error) string {
	if details := crdb.GetSafeDetails(err).SafeDetails; len(details) > 0 {
		return details[0]
	}
	if crdb.GetReportableStackTrace(err) != nil {
		return fmt.Sprintf("%+v", err)
	}
	return ""
}
