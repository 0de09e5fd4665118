package repository

import (
	"art-marketplace/internal/biddingerrors"
	"art-marketplace/internal/config"
	model "art-marketplace/internal/models"
	"art-marketplace/utils"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresRepo implements AuctionDB on PostgreSQL through bun
type PostgresRepo struct {
	db *bun.DB
}

// NewPostgresRepo wraps an open bun database
func NewPostgresRepo(db *bun.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// DB exposes the underlying bun database
func (r *PostgresRepo) DB() *bun.DB {
	return r.db
}

// Open connects to PostgreSQL, retrying the initial ping, and installs the query logger
func Open(ctx context.Context, cfg config.StoreConfig) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	if cfg.PoolSize > 0 {
		sqldb.SetMaxOpenConns(cfg.PoolSize)
		sqldb.SetMaxIdleConns(cfg.PoolSize)
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var err error
	for attempt := 1; attempt <= retries; attempt++ {
		if err = sqldb.PingContext(ctx); err == nil {
			break
		}
		utils.Warn("Database ping failed", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if attempt == retries {
			break
		}
		select {
		case <-ctx.Done():
			sqldb.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.RetryInterval.Std()):
		}
	}
	if err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("database unreachable after %d attempts: %w", retries, err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	db.AddQueryHook(queryLogger{})
	return db, nil
}

// queryLogger reports every statement at debug level
type queryLogger struct{}

func (queryLogger) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (queryLogger) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		utils.Warn("Query failed", map[string]any{
			"operation": event.Operation(),
			"query":     event.Query,
			"took":      time.Since(event.StartTime).String(),
			"error":     event.Err.Error(),
		})
		return
	}
	if !utils.DebugEnabled() {
		return
	}
	utils.Debug("Query executed", map[string]any{
		"operation": event.Operation(),
		"query":     event.Query,
		"took":      time.Since(event.StartTime).String(),
	})
}

// CreateListing inserts the artwork and its offer in one transaction
func (r *PostgresRepo) CreateListing(ctx context.Context, listing model.Listing) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&listing.Artwork).Exec(ctx); err != nil {
			return err
		}
		if listing.Auction != nil {
			if _, err := tx.NewInsert().Model(listing.Auction).Exec(ctx); err != nil {
				return err
			}
		}
		if listing.Gallery != nil {
			if _, err := tx.NewInsert().Model(listing.Gallery).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create listing %s: %w - already exists", listing.Artwork.ArtworkID, biddingerrors.ErrInvalidListing)
		}
		return fmt.Errorf("create listing %s: %w", listing.Artwork.ArtworkID, translate(err))
	}
	return nil
}

func (r *PostgresRepo) GetArtwork(ctx context.Context, artworkID string) (model.Artwork, error) {
	var art model.Artwork
	err := r.db.NewSelect().Model(&art).Where("aw.id = ?", artworkID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Artwork{}, fmt.Errorf("get artwork %s: %w", artworkID, biddingerrors.ErrArtworkNotFound)
	}
	if err != nil {
		return model.Artwork{}, fmt.Errorf("get artwork %s: %w", artworkID, translate(err))
	}
	return art, nil
}

func (r *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	return r.selectAuction(ctx, "get auction "+auctionID, "au.id = ?", auctionID)
}

func (r *PostgresRepo) GetAuctionByArtwork(ctx context.Context, artworkID string) (model.Auction, error) {
	return r.selectAuction(ctx, "get auction for artwork "+artworkID, "au.artwork_id = ?", artworkID)
}

func (r *PostgresRepo) selectAuction(ctx context.Context, op, where string, arg string) (model.Auction, error) {
	var a model.Auction
	err := r.db.NewSelect().Model(&a).Where(where, arg).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Auction{}, fmt.Errorf("%s: %w", op, biddingerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, fmt.Errorf("%s: %w", op, translate(err))
	}
	return a, nil
}

// RecordBid raises the auction's highest bid with a conditional update and appends
// the bid row in the same transaction. The row lock taken by the update serialises
// concurrent bidders on one auction.
func (r *PostgresRepo) RecordBid(ctx context.Context, bid model.Bid, now time.Time) (model.Bid, error) {
	var previous model.Bid

	err := r.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*model.Auction)(nil)).
			Set("current_highest_bid = ?", bid.Amount).
			Set("bid_count = bid_count + 1").
			Set("updated_at = ?", now).
			Where("id = ?", bid.AuctionID).
			Where("status NOT IN (?)", bun.In([]model.AuctionStatus{model.AuctionStatusEndedSold, model.AuctionStatusEndedUnsold})).
			Where("current_highest_bid < ?", bid.Amount).
			Where("start_time <= ?", now).
			Where("end_time > ?", now).
			Exec(ctx)
		if err != nil {
			return err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			exists, err := tx.NewSelect().Model((*model.Auction)(nil)).Where("id = ?", bid.AuctionID).Exists(ctx)
			if err != nil {
				return err
			}
			if !exists {
				return biddingerrors.ErrAuctionNotFound
			}
			return biddingerrors.ErrBidConflict
		}

		err = tx.NewSelect().
			Model(&previous).
			Where("b.auction_id = ?", bid.AuctionID).
			OrderExpr("b.amount DESC, b.created_at ASC").
			Limit(1).
			Scan(ctx)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		_, err = tx.NewInsert().Model(&bid).Exec(ctx)
		return err
	})
	if err != nil {
		return model.Bid{}, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, translate(err))
	}
	return previous, nil
}

func (r *PostgresRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if _, err := r.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}

	var bids []model.Bid
	err := r.db.NewSelect().
		Model(&bids).
		Where("b.auction_id = ?", auctionID).
		OrderExpr("b.amount DESC, b.created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, translate(err))
	}
	return bids, nil
}

// GetBidSummary reads the count and top bids from one snapshot of the ledger
func (r *PostgresRepo) GetBidSummary(ctx context.Context, auctionID string, topN int) (model.BidSummary, error) {
	var summary model.BidSummary

	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	err := r.db.RunInTx(ctx, opts, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*model.Auction)(nil)).Where("id = ?", auctionID).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return biddingerrors.ErrAuctionNotFound
		}

		summary.BidCount, err = tx.NewSelect().Model((*model.Bid)(nil)).Where("auction_id = ?", auctionID).Count(ctx)
		if err != nil {
			return err
		}

		q := tx.NewSelect().
			Model(&summary.TopBids).
			Where("b.auction_id = ?", auctionID).
			OrderExpr("b.amount DESC, b.created_at ASC")
		if topN > 0 {
			q = q.Limit(topN)
		}
		return q.Scan(ctx)
	})
	if err != nil {
		return model.BidSummary{}, fmt.Errorf("get bid summary for auction %s: %w", auctionID, translate(err))
	}

	if len(summary.TopBids) > 0 {
		summary.Leader = summary.TopBids[0]
	}
	return summary, nil
}

func (r *PostgresRepo) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	auctions := []model.Auction{}
	err := r.db.NewSelect().
		Model(&auctions).
		Where("au.id IN (?)", r.db.NewSelect().Model((*model.Bid)(nil)).Column("auction_id").Where("bidder_id = ?", userID)).
		Order("au.created_at").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, translate(err))
	}
	return auctions, nil
}

func (r *PostgresRepo) CloseAuction(ctx context.Context, auctionID string, status model.AuctionStatus, winnerID string, now time.Time) (bool, error) {
	changed := false

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var a model.Auction
		err := tx.NewSelect().Model(&a).Where("au.id = ?", auctionID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return biddingerrors.ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		if a.Status.Terminal() {
			return nil
		}

		_, err = tx.NewUpdate().
			Model((*model.Auction)(nil)).
			Set("status = ?", status).
			Set("winner_id = ?", winnerID).
			Set("updated_at = ?", now).
			Where("id = ?", auctionID).
			Exec(ctx)
		if err != nil {
			return err
		}

		if status == model.AuctionStatusEndedSold {
			_, err = tx.NewUpdate().
				Model((*model.Artwork)(nil)).
				Set("sold = TRUE").
				Set("updated_at = ?", now).
				Where("id = ?", a.ArtworkID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("close auction %s: %w", auctionID, translate(err))
	}
	return changed, nil
}

// RelistToGallery inserts the gallery entry unless one exists for the artwork.
// The unique artwork_id constraint keeps concurrent relists from creating duplicates.
func (r *PostgresRepo) RelistToGallery(ctx context.Context, entry model.GalleryEntry, auctionID string) (model.GalleryEntry, bool, error) {
	result := entry
	created := false

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var a model.Auction
		err := tx.NewSelect().Model(&a).Where("au.id = ?", auctionID).For("UPDATE").Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return biddingerrors.ErrAuctionNotFound
		}
		if err != nil {
			return err
		}
		if a.Status == model.AuctionStatusEndedSold {
			return biddingerrors.ErrArtworkSold
		}
		if !a.Status.Terminal() {
			_, err = tx.NewUpdate().
				Model((*model.Auction)(nil)).
				Set("status = ?", model.AuctionStatusEndedUnsold).
				Set("updated_at = ?", entry.ListedAt).
				Where("id = ?", auctionID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}

		res, err := tx.NewInsert().Model(&entry).On("CONFLICT (artwork_id) DO NOTHING").Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 1 {
			created = true
			return nil
		}
		return tx.NewSelect().Model(&result).Where("ge.artwork_id = ?", entry.ArtworkID).Scan(ctx)
	})
	if err != nil {
		return model.GalleryEntry{}, false, fmt.Errorf("relist auction %s: %w", auctionID, translate(err))
	}
	return result, created, nil
}

func (r *PostgresRepo) ListGallery(ctx context.Context) ([]model.GalleryItem, error) {
	var entries []model.GalleryEntry
	if err := r.db.NewSelect().Model(&entries).Order("ge.listed_at").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list gallery: %w", translate(err))
	}
	if len(entries) == 0 {
		return []model.GalleryItem{}, nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ArtworkID
	}
	var artworks []model.Artwork
	if err := r.db.NewSelect().Model(&artworks).Where("aw.id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list gallery artworks: %w", translate(err))
	}
	byID := make(map[string]model.Artwork, len(artworks))
	for _, a := range artworks {
		byID[a.ArtworkID] = a
	}

	items := make([]model.GalleryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, model.GalleryItem{Entry: e, Artwork: byID[e.ArtworkID]})
	}
	return items, nil
}

func (r *PostgresRepo) AddNotification(ctx context.Context, n model.Notification) error {
	if _, err := r.db.NewInsert().Model(&n).Exec(ctx); err != nil {
		return fmt.Errorf("add notification for %s: %w", n.UserID, translate(err))
	}
	return nil
}

func (r *PostgresRepo) GetNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	notifications := []model.Notification{}
	err := r.db.NewSelect().
		Model(&notifications).
		Where("n.user_id = ?", userID).
		OrderExpr("n.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("get notifications for %s: %w", userID, translate(err))
	}
	return notifications, nil
}

// translate maps driver failures onto the error taxonomy. Domain sentinels pass through.
func translate(err error) error {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		code := pgErr.Field('C')
		switch {
		case code == "40001" || code == "40P01":
			return fmt.Errorf("%w: %s", biddingerrors.ErrBidConflict, pgErr.Error())
		case code == "22003":
			return fmt.Errorf("%w: %s", biddingerrors.ErrValidation, pgErr.Error())
		case len(code) >= 2 && (code[:2] == "08" || code[:2] == "53" || code[:2] == "57"):
			return fmt.Errorf("%w: %s", biddingerrors.ErrStoreUnavailable, pgErr.Error())
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%w: %s", biddingerrors.ErrStoreUnavailable, err.Error())
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
