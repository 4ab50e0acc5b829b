package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// attributeRule keeps or drops every span attribute whose key starts with prefix.
type attributeRule struct {
	prefix string
	keep   bool
}

// attributeRules are matched in order and the first hit decides. Repository
// content (file paths, commit messages, raw URLs) is dropped before the
// broader namespaces that would otherwise admit it. Keys matching no rule
// are dropped.
var attributeRules = []attributeRule{
	{"file.path", false},
	{"commit.message", false},
	{"commit.author", false},
	{"http.url", false},
	{"http.target", false},
	{"user.", false},
	{"email", false},
	{"request.body", false},
	{"response.body", false},

	{"scene.", true},
	{"viewer.", true},
	{"snapshot.", true},
	{"commit.", true},
	{"timewarp.", true},
	{"mcp.", true},
	{"http.", true},
	{"server.", true},
	{"error", true},
	{"stack", true},
}

func keepAttribute(key string) bool {
	for _, rule := range attributeRules {
		if strings.HasPrefix(key, rule.prefix) {
			return rule.keep
		}
	}

	return false
}

// redactingProcessor removes disallowed attributes from finished spans
// before handing them to the exporter's processor.
type redactingProcessor struct {
	sdktrace.SpanProcessor

	logger   *slog.Logger
	reported sync.Map
}

// NewAttributeFilter wraps delegate so exported spans carry only the
// attributes attributeRules keep. A non-nil logger gets one warning per
// distinct dropped key.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &redactingProcessor{SpanProcessor: delegate, logger: logger}
}

// OnEnd hands delegate a view of s without the dropped attributes.
func (p *redactingProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	p.SpanProcessor.OnEnd(&redactedSpan{ReadOnlySpan: s, processor: p})
}

// Shutdown shuts the delegate down.
func (p *redactingProcessor) Shutdown(ctx context.Context) error {
	if err := p.SpanProcessor.Shutdown(ctx); err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

// ForceFlush flushes the delegate.
func (p *redactingProcessor) ForceFlush(ctx context.Context) error {
	if err := p.SpanProcessor.ForceFlush(ctx); err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (p *redactingProcessor) dropped(key string) {
	if p.logger == nil {
		return
	}

	if _, seen := p.reported.LoadOrStore(key, struct{}{}); seen {
		return
	}

	p.logger.Warn("span attribute dropped", "key", key)
}

type redactedSpan struct {
	sdktrace.ReadOnlySpan

	processor *redactingProcessor
}

// Attributes returns the span's attributes that attributeRules keep.
func (s *redactedSpan) Attributes() []attribute.KeyValue {
	all := s.ReadOnlySpan.Attributes()
	kept := make([]attribute.KeyValue, 0, len(all))

	for _, kv := range all {
		if keepAttribute(string(kv.Key)) {
			kept = append(kept, kv)

			continue
		}

		s.processor.dropped(string(kv.Key))
	}

	return kept
}
