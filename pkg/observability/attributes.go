package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used across insights spans and metrics.
var (
	AttrOperation = attribute.Key("insights.operation")

	AttrRole          = attribute.Key("insights.role")
	AttrReportID      = attribute.Key("insights.report.id")
	AttrHiddenVisuals = attribute.Key("insights.visuals.hidden")
	AttrPolicyPrint   = attribute.Key("insights.policy.fingerprint")

	AttrUpstreamHost = attribute.Key("insights.upstream.host")

	AttrHTTPMethod = attribute.Key("http.request.method")
	AttrHTTPRoute  = attribute.Key("http.route")
	AttrHTTPStatus = attribute.Key("http.response.status_code")
)

// ApplyRoleOperation describes one apply-role call.
func ApplyRoleOperation(reportID, role, policyFingerprint string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrReportID.String(reportID),
		AttrRole.String(role),
		AttrPolicyPrint.String(policyFingerprint),
	}
}

// ForwardOperation describes one upstream prediction call.
func ForwardOperation(host string) []attribute.KeyValue {
	return []attribute.KeyValue{AttrUpstreamHost.String(host)}
}

// AddSpanEvent adds an event to the span in ctx.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}
