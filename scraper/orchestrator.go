package scraper

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"portal_scraper/config"
	"portal_scraper/crawler"
	"portal_scraper/extract"
	"portal_scraper/merge"
	"portal_scraper/models"
	"portal_scraper/paginate"
	"portal_scraper/payload"
	"portal_scraper/storage"
)

// Orchestrator drives one crawl: search pages fan out into detail pages,
// detail pages run the extraction passes and feed merged records to the
// sink in batches.
type Orchestrator struct {
	cfg   *config.Config
	store *storage.SQLiteStore
	sink  storage.Sink
	api   *crawler.APIClient

	seen  *seenSet
	batch *batcher
	stats *runStats

	mu          sync.Mutex
	pagesQueued int

	ctx   context.Context
	runID int64
}

func NewOrchestrator(cfg *config.Config, store *storage.SQLiteStore, sink storage.Sink, api *crawler.APIClient) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		store: store,
		sink:  sink,
		api:   api,
	}
}

// Run executes a full crawl and reports what it stored. The returned summary
// is also persisted as a crawl_runs row.
func (o *Orchestrator) Run(ctx context.Context) (*models.RunSummary, error) {
	startURL, err := BuildSearchURL(o.cfg.Portal, o.cfg.Search)
	if err != nil {
		return nil, err
	}

	o.seen = newSeenSet()
	o.batch = newBatcher(o.sink, o.cfg.Crawl.BatchSize)
	o.stats = &runStats{}
	o.ctx = ctx
	o.pagesQueued = 1

	run := &models.CrawlRun{StartedAt: time.Now(), Status: models.RunStatusRunning}
	o.runID, err = o.store.CreateRun(run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = o.runID

	col, err := crawler.New(crawler.Config{
		AllowedDomain: o.cfg.Portal.Domain,
		UserAgent:     o.cfg.Portal.UserAgent,
		Concurrency:   o.cfg.Crawl.Concurrency,
		Delay:         time.Duration(o.cfg.Crawl.DelayMS) * time.Millisecond,
		RandomDelay:   time.Duration(o.cfg.Crawl.DelayJitterMS) * time.Millisecond,
		MaxRetries:    o.cfg.Crawl.MaxRetries,
	}, o.handle)
	if err != nil {
		return nil, err
	}

	o.store.Log(&o.runID, models.LogLevelInfo, "crawl starting at "+startURL)
	log.Printf("Crawl starting: %s", startURL)

	err = col.Enqueue(crawler.Request{
		URL:  startURL,
		Kind: crawler.KindSearch,
		Meta: crawler.Meta{Cursor: models.SearchCursor{RequestURL: startURL, PageNumber: 1}},
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue start url: %w", err)
	}

	col.Wait()

	if err := o.batch.Flush(ctx); err != nil {
		o.stats.Error(fmt.Sprintf("final flush: %v", err))
		log.Printf("Final flush failed: %v", err)
	}

	pages, failed, errors, lastErr := o.stats.Snapshot()

	now := time.Now()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	run.PagesProcessed = pages
	run.RecordsStored = o.batch.Stored()
	run.UniqueURLs = o.seen.Len()
	run.FailedRecords = failed
	run.ErrorsCount = errors
	run.ErrorMessage = lastErr
	if ctx.Err() != nil {
		run.Status = models.RunStatusFailed
		if run.ErrorMessage == "" {
			run.ErrorMessage = ctx.Err().Error()
		}
	}
	if err := o.store.UpdateRun(run); err != nil {
		log.Printf("Update run failed: %v", err)
	}
	o.store.Log(&o.runID, models.LogLevelInfo,
		fmt.Sprintf("crawl finished: %d pages, %d records, %d failed", pages, run.RecordsStored, failed))
	if counts, err := o.store.CountByMethod(); err == nil {
		log.Printf("Extraction provenance to date: %v", counts)
	}

	return &models.RunSummary{
		RecordsStored:  run.RecordsStored,
		UniqueURLs:     run.UniqueURLs,
		PagesProcessed: pages,
		FailedRecords:  failed,
		Status:         run.Status,
		ErrorMessage:   run.ErrorMessage,
	}, nil
}

func (o *Orchestrator) handle(res *crawler.Response, enqueue func(crawler.Request)) {
	if o.ctx.Err() != nil {
		return
	}

	switch res.Request.Kind {
	case crawler.KindSearch:
		o.handleSearch(res, enqueue)
	case crawler.KindDetail:
		o.handleDetail(res)
	default:
		log.Printf("Unknown page kind %q for %s", res.Request.Kind, res.Request.URL)
	}
}

// handleSearch extracts listing cards, queues unseen listings, and resolves
// the next results page. A page with zero cards is the terminal signal.
func (o *Orchestrator) handleSearch(res *crawler.Response, enqueue func(crawler.Request)) {
	cursor := res.Request.Meta.Cursor
	cards := extract.Cards(res.Document, res.Request.URL)
	o.stats.PageDone()

	log.Printf("Search page %d: %d cards", cursor.PageNumber, len(cards))

	if len(cards) == 0 {
		o.store.Log(&o.runID, models.LogLevelInfo,
			fmt.Sprintf("page %d empty, stopping pagination", cursor.PageNumber))
		return
	}

	for i := range cards {
		card := cards[i]
		if o.seen.Len() >= o.cfg.Crawl.MaxResults {
			break
		}
		if !o.seen.Add(card.URL) {
			continue
		}

		if o.cfg.Crawl.CollectDetails {
			enqueue(crawler.Request{
				URL:  card.URL,
				Kind: crawler.KindDetail,
				Meta: crawler.Meta{Partial: &card},
			})
			continue
		}

		rec := merge.Finalize([]models.PartialListing{card}, time.Now())
		o.emit(rec)
	}

	if o.seen.Len() >= o.cfg.Crawl.MaxResults {
		return
	}
	o.mu.Lock()
	underPageCeiling := o.pagesQueued < o.cfg.Crawl.MaxPages
	if underPageCeiling {
		o.pagesQueued++
	}
	o.mu.Unlock()
	if !underPageCeiling {
		return
	}

	next := paginate.Resolve(res.Document, cursor)
	if next.State == paginate.Exhausted {
		o.store.Log(&o.runID, models.LogLevelWarn,
			fmt.Sprintf("pagination exhausted at page %d", cursor.PageNumber))
		return
	}
	enqueue(crawler.Request{
		URL:  next.Cursor.RequestURL,
		Kind: crawler.KindSearch,
		Meta: crawler.Meta{Cursor: next.Cursor},
	})
}

// handleDetail runs the extraction passes over a listing page, merges their
// partials, and hands the record to the batcher. Extraction never drops a
// listing: a page where every pass came up empty still yields a record,
// tagged failed.
func (o *Orchestrator) handleDetail(res *crawler.Response) {
	pageURL := res.Request.URL
	var partials []models.PartialListing

	// Partials accumulate in production order: the card partial first, then
	// the detail passes, then the API fallback. First-writer-wins merging
	// means the card's fields take precedence and later passes fill gaps.
	if res.Request.Meta.Partial != nil {
		partials = append(partials, *res.Request.Meta.Partial)
	}

	if p := extract.FromJSONLD(payload.JSONLDBlocks(res.Document), pageURL); p != nil {
		partials = append(partials, *p)
	}

	for _, blob := range payload.AppStateBlobs(res.Document) {
		node := payload.FindListingNode(blob)
		if node == nil {
			continue
		}
		if p := extract.FromAppState(node, pageURL); p != nil {
			partials = append(partials, *p)
			break
		}
	}

	if p := extract.FromHTML(res.Document, pageURL); p != nil {
		partials = append(partials, *p)
	}

	if o.api != nil && o.needsFallback(partials) {
		o.apiFallback(pageURL, &partials)
	}

	rec := merge.Finalize(partials, time.Now())
	if rec.URL == "" {
		rec.URL = pageURL
	}
	if rec.ListingID == "" {
		rec.ListingID = extract.ListingID(pageURL)
	}

	if rec.Failed() {
		o.stats.RecordFailed()
		o.store.Log(&o.runID, models.LogLevelWarn, "extraction failed for "+pageURL)
	}

	o.stats.PageDone()
	o.emit(rec)
}

// needsFallback reports whether the page passes left both identity fields
// empty, which is the trigger for the JSON endpoint.
func (o *Orchestrator) needsFallback(partials []models.PartialListing) bool {
	for _, p := range partials {
		if p.Address != "" || p.Title != "" {
			return false
		}
	}
	return true
}

func (o *Orchestrator) apiFallback(pageURL string, partials *[]models.PartialListing) {
	id := extract.ListingID(pageURL)
	if id == "" {
		return
	}

	apiCtx, cancel := context.WithTimeout(o.ctx, 30*time.Second)
	defer cancel()

	node, err := o.api.ListingPayload(apiCtx, id, o.cfg.Portal.Channel)
	if err != nil {
		o.stats.Error(fmt.Sprintf("api fallback %s: %v", id, err))
		log.Printf("API fallback failed for %s: %v", id, err)
		return
	}
	if p := extract.FromAPIPayload(node, pageURL); p != nil {
		*partials = append(*partials, *p)
	}
}

func (o *Orchestrator) emit(rec models.ListingRecord) {
	if o.cfg.Media.Enabled && !rec.Failed() {
		o.enqueueMedia(&rec)
	}

	if err := o.batch.Add(o.ctx, rec); err != nil {
		o.stats.Error(fmt.Sprintf("store batch: %v", err))
		log.Printf("Batch store failed: %v", err)
	}
}

func (o *Orchestrator) enqueueMedia(rec *models.ListingRecord) {
	if len(rec.Images) > 0 {
		if err := o.store.EnqueueMedia(o.ctx, rec.ListingID, models.MediaTypeImage, rec.Images); err != nil {
			log.Printf("Enqueue images for %s: %v", rec.ListingID, err)
		}
	}
	if len(rec.Floorplans) > 0 {
		if err := o.store.EnqueueMedia(o.ctx, rec.ListingID, models.MediaTypeFloorplan, rec.Floorplans); err != nil {
			log.Printf("Enqueue floorplans for %s: %v", rec.ListingID, err)
		}
	}
}
