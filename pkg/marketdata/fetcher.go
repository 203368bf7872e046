package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// ResultKind classifies what happened to one identifier's request. The loop
// treats all failures the same way (print the identifier, move on), the kind
// only exists so logs can tell a dead network from a garbage body.
type ResultKind string

const (
	KindOK        ResultKind = "ok"
	KindTransport ResultKind = "transport"
	KindDecode    ResultKind = "decode"
)

// Result is the outcome of one identifier's fetch.
type Result struct {
	RequestID uuid.UUID
	Symbol    string
	Kind      ResultKind
	Body      []byte // valid JSON when Kind == KindOK
	Err       error
}

// Fetcher runs the sequential request loop. One GET and one printed block
// per identifier, blank-line separated; a failed identifier never aborts the
// rest of the batch.
type Fetcher struct {
	provider Provider
	out      io.Writer
	ndjson   bool
	logger   *zap.Logger
}

func NewFetcher(provider Provider, out io.Writer, ndjson bool, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		provider: provider,
		out:      out,
		ndjson:   ndjson,
		logger:   logger,
	}
}

// Run processes the identifiers strictly in order, one blocking request at a
// time. The returned results are in the same order as the input.
func (f *Fetcher) Run(ctx context.Context, ids []string) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		res := f.fetchOne(ctx, id)
		f.emit(res)
		results = append(results, res)
	}
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, symbol string) Result {
	res := Result{
		RequestID: uuid.New(),
		Symbol:    symbol,
	}

	body, err := f.provider.History(ctx, symbol)
	if err != nil {
		res.Kind = KindTransport
		res.Err = err
		f.logger.Warn("Transport failure",
			zap.String("request_id", res.RequestID.String()),
			zap.String("symbol", symbol),
			zap.String("provider", f.provider.Name()),
			zap.Error(err))
		return res
	}

	decoded, err := decodeBody(body)
	if err != nil {
		res.Kind = KindDecode
		res.Err = err
		f.logger.Warn("Undecodable response body",
			zap.String("request_id", res.RequestID.String()),
			zap.String("symbol", symbol),
			zap.String("provider", f.provider.Name()),
			zap.String("diagnostic", bodyDiagnostic(body)),
			zap.Error(err))
		return res
	}

	res.Kind = KindOK
	res.Body = decoded
	return res
}

// decodeBody parses the body as JSON. APIs behind CDNs occasionally hand
// back truncated or sloppy JSON, so a failed parse gets one repair attempt
// before the body is declared garbage. Repair only runs on bodies that at
// least open like JSON; the repairer would otherwise quote an HTML error
// page into a "valid" JSON string and hide the failure.
func decodeBody(body []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		return body, nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, fmt.Errorf("response body is not JSON")
	}

	repaired, err := jsonrepair.JSONRepair(string(body))
	if err != nil {
		return nil, fmt.Errorf("response body is not JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, fmt.Errorf("repaired body still not JSON: %w", err)
	}

	return []byte(repaired), nil
}

// bodyDiagnostic gives the log line something human about a non-JSON body.
// Rate-limit and auth failures usually arrive as HTML error pages whose
// title says what went wrong.
func bodyDiagnostic(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return "empty body"
	}

	if bytes.HasPrefix(trimmed, []byte("<")) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(trimmed))
		if err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return "html page: " + title
			}
		}
		return "html page without title"
	}

	const maxSnippet = 80
	if len(trimmed) > maxSnippet {
		trimmed = trimmed[:maxSnippet]
	}
	return string(trimmed)
}

// emit writes exactly one output block for the result. Human mode prints the
// decoded JSON (or the bare identifier as the degraded fallback) followed by
// a blank separator line; ndjson mode prints one machine-readable line.
func (f *Fetcher) emit(res Result) {
	if f.ndjson {
		f.emitNDJSON(res)
		return
	}

	if res.Kind == KindOK {
		fmt.Fprintf(f.out, "%s\n", bytes.TrimRight(pretty.Pretty(res.Body), "\n"))
	} else {
		fmt.Fprintf(f.out, "%s\n", res.Symbol)
	}
	fmt.Fprintln(f.out)
}

func (f *Fetcher) emitNDJSON(res Result) {
	line := struct {
		RequestID string          `json:"request_id"`
		Symbol    string          `json:"symbol"`
		Status    ResultKind      `json:"status"`
		Data      json.RawMessage `json:"data,omitempty"`
		Error     string          `json:"error,omitempty"`
	}{
		RequestID: res.RequestID.String(),
		Symbol:    res.Symbol,
		Status:    res.Kind,
	}
	if res.Kind == KindOK {
		line.Data = json.RawMessage(pretty.Ugly(res.Body))
	} else if res.Err != nil {
		line.Error = res.Err.Error()
	}

	out, err := json.Marshal(line)
	if err != nil {
		// Data is known-valid JSON, this should not happen.
		f.logger.Error("Marshalling ndjson line", zap.Error(err))
		return
	}
	fmt.Fprintf(f.out, "%s\n", out)
}
