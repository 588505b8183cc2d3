package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/WebRank-Search-Engine/pkg/logger"
)

func TestSpanTree(t *testing.T) {
	ctx := logger.WithRequestID(context.Background(), "req-42")
	ctx, root := StartSpan(ctx, "search", "")
	_, parse := StartChildSpan(ctx, "parse")
	parse.SetAttr("terms", 2)
	parse.End()
	_, cosine := StartChildSpan(ctx, "cosine")
	cosine.End()
	root.End()

	if root.TraceID != "req-42" {
		t.Errorf("trace id = %q, want req-42", root.TraceID)
	}
	if len(root.Children) != 2 || root.Children[0].Name != "parse" || root.Children[1].TraceID != "req-42" {
		t.Fatalf("children not linked: %+v", root.Children)
	}

	var buf bytes.Buffer
	root.Log(logger.New(&buf, "debug", "text"))
	out := buf.String()
	if strings.Count(out, "msg=span") != 3 || !strings.Contains(out, "terms=2") {
		t.Errorf("unexpected log output:\n%s", out)
	}

	buf.Reset()
	root.Log(logger.New(&buf, "info", "text"))
	if buf.Len() != 0 {
		t.Errorf("span tree logged above debug level:\n%s", buf.String())
	}
}

func TestChildWithoutParent(t *testing.T) {
	ctx, span := StartChildSpan(context.Background(), "orphan")
	if span.TraceID != "" || SpanFromContext(ctx) != span {
		t.Errorf("orphan span = %+v", span)
	}
}
