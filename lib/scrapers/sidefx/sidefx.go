// Package sidefx extracts daily build fixes from the SideFX changelog page.
//
// Every entry is a table row of the form
//
//	<tr>
//	  <td><img src="/static/icons/icon_sop.png"></td>
//	  <td>19.5.501</td>
//	  <td><p>Fixed a crash.</p></td>
//	</tr>
//
// where the category is read from the icon's file name.
package sidefx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"changelog-bot/lib/changelog"
	"changelog-bot/lib/htmlutil"
	"changelog-bot/lib/restyutil"
	"changelog-bot/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("changelog-bot/lib/scrapers/sidefx")

const DefaultUrl = "https://www.sidefx.com/changelog/"

type ErrorKind int

const (
	SourceNotFound ErrorKind = iota
	BuildNotFound
	DescriptionNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case SourceNotFound:
		return "source not found"
	case BuildNotFound:
		return "build not found"
	case DescriptionNotFound:
		return "description not found"
	}
	return "unknown"
}

// ExtractionError is returned when a changelog row is missing one of its
// required parts.
type ExtractionError struct {
	Kind ErrorKind
	// Row is the 0-based index of the offending row.
	Row int
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Kind)
}

// Is makes errors.Is(err, &ExtractionError{Kind: k}) match on kind alone.
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	return ok && t.Kind == e.Kind
}

var ErrNetwork = errors.New("changelog fetch failed")

// Triple is a single fix as it appears on the page.
type Triple struct {
	Build       string
	Category    string
	Description string
}

type ClientOptions struct {
	Url     string
	Timeout time.Duration
	// Retries is the amount of extra attempts made on network errors and 5xx
	// responses.
	Retries          int
	RetryWait        time.Duration
	RetryMaxWait     time.Duration
	UserAgent        string
	CloudflareBypass bool
	Output           restyutil.InstrumentOutput
}

type Client struct {
	url  string
	http *resty.Client
}

func NewClient(opts ClientOptions) *Client {
	if opts.Url == "" {
		opts.Url = DefaultUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = time.Second
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetRetryCount(opts.Retries)
	client.SetRetryWaitTime(opts.RetryWait)
	client.SetRetryMaxWaitTime(opts.RetryMaxWait)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500
	})
	if opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	restyutil.InstrumentClient(client, otel.Tracer("changelog-bot/lib/scrapers/sidefx/http"), opts.Output)

	return &Client{url: opts.Url, http: client}
}

// Fetch downloads and parses the changelog page.
func (c *Client) Fetch(ctx context.Context) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		Get(c.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch changelog")
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
		return nil, fmt.Errorf("%w: GET %s: %s", ErrNetwork, c.url, res.Status())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	return doc, nil
}

// Extract fetches the page and collects every fix into a snapshot.
func (c *Client) Extract(ctx context.Context) (*changelog.Snapshot, error) {
	doc, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Parse(ctx, doc)
}

// Parse collects every fix of doc into a snapshot.
func Parse(ctx context.Context, doc *goquery.Document) (*changelog.Snapshot, error) {
	triples, err := Triples(ctx, doc)
	if err != nil {
		return nil, err
	}
	snap := changelog.New()
	for _, t := range triples {
		snap.Fill(t.Build, t.Category, t.Description)
	}
	return snap, nil
}

// Triples lists the fixes of doc in page order. Rows without an icon are
// not changelog entries and are skipped.
func Triples(ctx context.Context, doc *goquery.Document) ([]Triple, error) {
	_, span := tracer.Start(ctx, "Triples")
	defer span.End()

	var triples []Triple
	var parseErr error
	doc.Find(".table-striped tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		img := row.Find("img").First()
		if img.Length() == 0 {
			return true
		}

		src, ok := img.Attr("src")
		category := categoryFromSource(src)
		if !ok || category == "" {
			parseErr = &ExtractionError{Kind: SourceNotFound, Row: i}
			return false
		}

		cells := row.Find("td")
		if cells.Length() < 2 {
			parseErr = &ExtractionError{Kind: BuildNotFound, Row: i}
			return false
		}
		build := htmlutil.NormalizeText(cells.Eq(1).Text())
		if build == "" {
			parseErr = &ExtractionError{Kind: BuildNotFound, Row: i}
			return false
		}

		lines := htmlutil.SelectionText(cells.Find("p, li"))
		if len(lines) == 0 {
			parseErr = &ExtractionError{Kind: DescriptionNotFound, Row: i}
			return false
		}

		triples = append(triples, Triple{
			Build:       build,
			Category:    category,
			Description: strings.Join(lines, "\n"),
		})
		return true
	})
	if parseErr != nil {
		span.RecordError(parseErr)
		span.SetStatus(codes.Error, "failed to parse changelog row")
		return nil, parseErr
	}

	span.SetAttributes(attribute.Int("entries", len(triples)))
	return triples, nil
}

// categoryFromSource turns "/images/icon_sop.png?v=2" into "sop".
func categoryFromSource(src string) string {
	src, _, _ = strings.Cut(src, "?")
	stem := strings.TrimSuffix(path.Base(src), path.Ext(src))
	if stem == "." || stem == "/" {
		return ""
	}
	return textutil.NormalizeKey(strings.TrimPrefix(stem, "icon_"))
}
