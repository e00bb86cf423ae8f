package observability

import (
	"testing"

	"github.com/qravy/storefront-api/internal/platform/requestctx"
)

func TestParseTraceHeader(t *testing.T) {
	const traceID = "105445aa7843bc8bf206b12000100000"

	t.Run("hex span id sampled", func(t *testing.T) {
		sc, ok := parseTraceHeader(traceID + "/0000000000000001;o=1")
		if !ok {
			t.Fatal("expected header to parse")
		}
		if sc.TraceID().String() != traceID {
			t.Fatalf("unexpected trace id %s", sc.TraceID())
		}
		if !sc.IsSampled() {
			t.Fatal("expected sampled flag")
		}
		if !sc.IsRemote() {
			t.Fatal("expected remote span context")
		}
	})

	t.Run("decimal span id", func(t *testing.T) {
		sc, ok := parseTraceHeader(traceID + "/12345678901234567890;o=0")
		if !ok {
			t.Fatal("expected decimal span id to parse")
		}
		if sc.IsSampled() {
			t.Fatal("expected unsampled")
		}
	})

	t.Run("rejects malformed headers", func(t *testing.T) {
		for _, header := range []string{
			"",
			"not-a-trace",
			"short/1",
			traceID,
			traceID + "/",
			traceID + "/zzzz-not-a-span",
		} {
			if _, ok := parseTraceHeader(header); ok {
				t.Fatalf("expected %q to be rejected", header)
			}
		}
	})
}

func TestFormatTraceHeader(t *testing.T) {
	info := requestctx.TraceInfo{TraceID: "abc", SpanID: "def", Sampled: true}
	if got := formatTraceHeader(info); got != "abc/def;o=1" {
		t.Fatalf("unexpected header %q", got)
	}
	info.Sampled = false
	if got := formatTraceHeader(info); got != "abc/def;o=0" {
		t.Fatalf("unexpected header %q", got)
	}
}

func TestSanitizeRoute(t *testing.T) {
	if got := SanitizeRoute(""); got != "/" {
		t.Fatalf("expected empty route to map to /, got %q", got)
	}
	if got := SanitizeRoute("/v1/store\x00front"); got != "/v1/storefront" {
		t.Fatalf("expected control characters stripped, got %q", got)
	}
}
