package crawler

import (
	"bytes"
	"fmt"
	"log"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"portal_scraper/models"
)

// PageKind tags a queued request so the handler knows which extraction path
// to run.
type PageKind string

const (
	KindSearch PageKind = "search"
	KindDetail PageKind = "detail"
)

// Meta is the metadata attached to a request and returned untouched with its
// response.
type Meta struct {
	Cursor  models.SearchCursor    // set for search pages
	Partial *models.PartialListing // card partial carried into a detail fetch
}

// Request is a queued page fetch.
type Request struct {
	URL  string
	Kind PageKind
	Meta Meta
}

// Response is what the core receives per fetched page: the parsed document,
// the raw body, the status, and the request's metadata.
type Response struct {
	Request    Request
	StatusCode int
	Body       []byte
	Document   *goquery.Document
}

// Handler processes one response. It may enqueue follow-up requests through
// the provided enqueue func; it must not block on anything but its own work.
type Handler func(res *Response, enqueue func(Request))

// Config for the fetch collaborator.
type Config struct {
	AllowedDomain string
	UserAgent     string
	Concurrency   int
	Delay         time.Duration
	RandomDelay   time.Duration
	MaxRetries    int
}

// Collector wraps a colly async collector: bounded worker pool, randomized
// pacing between requests, retry with exponential backoff on fetch errors.
// Extraction itself stays synchronous and side-effect free inside the
// handler.
type Collector struct {
	c          *colly.Collector
	handler    Handler
	maxRetries int
}

const (
	ctxKeyKind     = "kind"
	ctxKeyMeta     = "meta"
	ctxKeyAttempts = "attempts"
)

func New(cfg Config, handler Handler) (*Collector, error) {
	opts := []colly.CollectorOption{
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
		colly.IgnoreRobotsTxt(),
	}
	if cfg.AllowedDomain != "" {
		opts = append(opts, colly.AllowedDomains(cfg.AllowedDomain))
	}

	c := colly.NewCollector(opts...)

	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Concurrency,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("limit rule: %w", err)
	}

	col := &Collector{c: c, handler: handler, maxRetries: cfg.MaxRetries}

	c.OnResponse(col.onResponse)
	c.OnError(col.onError)

	return col, nil
}

// Enqueue queues a page fetch. Callers own dedup; the collector fetches
// whatever it is given.
func (col *Collector) Enqueue(req Request) error {
	ctx := colly.NewContext()
	ctx.Put(ctxKeyKind, string(req.Kind))
	ctx.Put(ctxKeyMeta, req.Meta)

	return col.c.Request("GET", req.URL, nil, ctx, nil)
}

// Wait blocks until the queue drains.
func (col *Collector) Wait() {
	col.c.Wait()
}

func (col *Collector) onResponse(r *colly.Response) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		log.Printf("Parse error for %s: %v", r.Request.URL, err)
		return
	}

	res := &Response{
		Request:    requestFromCtx(r),
		StatusCode: r.StatusCode,
		Body:       r.Body,
		Document:   doc,
	}

	col.handler(res, func(next Request) {
		if err := col.Enqueue(next); err != nil {
			log.Printf("Enqueue error for %s: %v", next.URL, err)
		}
	})
}

// onError retries transient failures with exponential backoff up to the
// retry ceiling. The request keeps its context, so metadata survives.
func (col *Collector) onError(r *colly.Response, err error) {
	attempts, _ := r.Ctx.GetAny(ctxKeyAttempts).(int)
	if attempts >= col.maxRetries {
		log.Printf("Giving up on %s after %d attempts: %v", r.Request.URL, attempts+1, err)
		return
	}

	backoff := time.Second << uint(attempts)
	log.Printf("Fetch error for %s (attempt %d), retrying in %s: %v", r.Request.URL, attempts+1, backoff, err)
	r.Ctx.Put(ctxKeyAttempts, attempts+1)

	time.Sleep(backoff)
	if rerr := r.Request.Retry(); rerr != nil {
		log.Printf("Retry failed for %s: %v", r.Request.URL, rerr)
	}
}

func requestFromCtx(r *colly.Response) Request {
	req := Request{
		URL:  r.Request.URL.String(),
		Kind: PageKind(r.Ctx.Get(ctxKeyKind)),
	}
	if meta, ok := r.Ctx.GetAny(ctxKeyMeta).(Meta); ok {
		req.Meta = meta
	}
	return req
}
