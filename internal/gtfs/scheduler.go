package gtfs

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"metropath/internal/network"
	"metropath/internal/storage"
)

// Scheduler keeps the stored station graph in step with the published feed.
type Scheduler struct {
	downloader *Downloader
	importer   *Importer
	db         *storage.DB
	logger     *slog.Logger
	loc        *time.Location
	hour       int

	// OnImport, when set, receives every freshly imported graph.
	OnImport func(*network.Graph)

	mu            sync.Mutex
	lastCheckDate string // YYYY-MM-DD of last check, prevents multiple checks per day
}

// NewScheduler creates a Scheduler that checks the feed daily at 03:00 local time.
func NewScheduler(downloader *Downloader, importer *Importer, db *storage.DB, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		downloader: downloader,
		importer:   importer,
		db:         db,
		logger:     logger,
		loc:        time.Local,
		hour:       3,
	}
}

// EnsureData downloads and imports the feed if the database has no station
// graph. Called on startup.
func (s *Scheduler) EnsureData(ctx context.Context) error {
	if s.db.HasData(ctx) {
		s.logger.Info("station graph already present")
		return nil
	}
	s.logger.Info("no station graph found, performing initial import")
	return s.Update(ctx)
}

// CheckAndUpdate imports the feed if it changed since the last import.
// Only checks once per calendar day.
func (s *Scheduler) CheckAndUpdate(ctx context.Context) error {
	s.mu.Lock()
	today := time.Now().In(s.loc).Format("2006-01-02")
	if s.lastCheckDate == today {
		s.mu.Unlock()
		return nil
	}
	s.lastCheckDate = today
	s.mu.Unlock()

	lastModified, _ := s.db.GetMetadata(ctx, "last_modified")
	etag, _ := s.db.GetMetadata(ctx, "etag")

	result, err := s.downloader.Check(ctx, lastModified, etag)
	if err != nil {
		return err
	}
	if err := s.db.SetMetadata(ctx, "last_check", time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("record feed check", "error", err)
	}
	if !result.NeedsUpdate {
		return nil
	}

	return s.Update(ctx)
}

// StartBackground runs the daily check. It blocks until the context is cancelled.
func (s *Scheduler) StartBackground(ctx context.Context) {
	s.logger.Info("GTFS background scheduler started")

	for {
		next := nextRun(time.Now().In(s.loc), s.hour)
		s.logger.Info("next GTFS check scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			if err := s.CheckAndUpdate(ctx); err != nil {
				s.logger.Error("background GTFS update failed", "error", err)
			}
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("GTFS background scheduler stopped")
			return
		}
	}
}

// Update performs a full download-parse-import cycle.
func (s *Scheduler) Update(ctx context.Context) error {
	dl, err := s.downloader.Download(ctx)
	if err != nil {
		return err
	}
	defer os.Remove(dl.Path)

	feed, err := ParseZip(dl.Path, s.logger)
	if err != nil {
		return err
	}
	feed.LastModified = dl.LastModified
	feed.ETag = dl.ETag

	g, err := s.importer.Import(ctx, feed, dl.Path)
	if err != nil {
		return err
	}
	if s.OnImport != nil {
		s.OnImport(g)
	}
	return nil
}

// nextRun returns the next occurrence of hour:00 after now, in now's location.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
