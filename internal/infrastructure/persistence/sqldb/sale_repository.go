package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainErrors "github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/errors"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/domain/sale"
	"github.com/Sikos-Marketing-Developer-Team/nairobi-verified-sub002/internal/infrastructure/monitoring"
)

// SaleRepository implements the sale store on top of sqlx. Counter updates
// are single guarded statements; ReserveUnits and UpdateSale both lock the
// sales row first, so all writers touching a sale serialize in the same order.
type SaleRepository struct {
	db *sqlx.DB
}

func NewSaleRepository(conn *Connection) *SaleRepository {
	return &SaleRepository{db: conn.db}
}

func (r *SaleRepository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelDefault})
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(err)
	}
	return classify(tx.Commit())
}

func (r *SaleRepository) CreateSale(ctx context.Context, s *sale.Sale) error {
	if s.Version == 0 {
		s.Version = 1
	}
	row := newSaleRow(s)

	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		end := monitoring.TimeDBQuery("INSERT", "sales")
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO sales (`+saleColumns+`)
			VALUES (:id, :title, :description, :starts_at, :ends_at, :manually_disabled,
				:total_views, :total_units_sold, :created_by, :version, :created_at, :updated_at, :deleted_at)
		`, row)
		end()
		if err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		for i := range s.Offers {
			if err := insertOffer(ctx, tx, s.ID, i, &s.Offers[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertOffer(ctx context.Context, tx *sqlx.Tx, saleID string, position int, o *sale.Offer) error {
	end := monitoring.TimeDBQuery("INSERT", "sale_offers")
	defer end()

	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO sale_offers (`+offerColumns+`)
		VALUES (:id, :sale_id, :position, :product_id, :merchant_id, :product_name, :product_image,
			:merchant_label, :original_price, :sale_price, :discount_percentage, :total_stock, :units_sold,
			:max_units_per_buyer)
	`, newOfferRow(saleID, position, o))
	if err != nil {
		return fmt.Errorf("insert offer %s: %w", o.ID, err)
	}
	return nil
}

func (r *SaleRepository) GetSale(ctx context.Context, id string) (*sale.Sale, error) {
	var row saleRow
	query := r.db.Rebind(`SELECT ` + saleColumns + ` FROM sales WHERE id = ? AND deleted_at IS NULL`)
	if err := monitoring.InstrumentGet(ctx, r.db, &row, "SELECT", "sales", query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrSaleNotFound
		}
		return nil, classify(err)
	}

	var offers []offerRow
	query = r.db.Rebind(`SELECT ` + offerColumns + `, ` + topBuyerColumn + ` FROM sale_offers WHERE sale_id = ? ORDER BY position`)
	if err := monitoring.InstrumentSelect(ctx, r.db, &offers, "SELECT", "sale_offers", query, id); err != nil {
		return nil, classify(err)
	}

	return row.toDomain(offers), nil
}

func (r *SaleRepository) ListSales(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
	if !filter.IncludeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY starts_at, id`

	var rows []saleRow
	if err := monitoring.InstrumentSelect(ctx, r.db, &rows, "SELECT", "sales", query); err != nil {
		return nil, classify(err)
	}

	// Window filtering happens here so SQLite's text timestamps never take part
	// in a comparison.
	kept := rows[:0]
	for _, row := range rows {
		if filter.EndsAfter != nil && !row.EndsAt.After(*filter.EndsAfter) {
			continue
		}
		kept = append(kept, row)
	}
	if len(kept) == 0 {
		return []*sale.Sale{}, nil
	}

	ids := make([]string, len(kept))
	for i, row := range kept {
		ids[i] = row.ID
	}
	inQuery, args, err := sqlx.In(`SELECT `+offerColumns+` FROM sale_offers WHERE sale_id IN (?) ORDER BY sale_id, position`, ids)
	if err != nil {
		return nil, err
	}
	var offers []offerRow
	if err := monitoring.InstrumentSelect(ctx, r.db, &offers, "SELECT", "sale_offers", r.db.Rebind(inQuery), args...); err != nil {
		return nil, classify(err)
	}

	bySale := make(map[string][]offerRow, len(kept))
	for _, o := range offers {
		bySale[o.SaleID] = append(bySale[o.SaleID], o)
	}

	sales := make([]*sale.Sale, 0, len(kept))
	for i := range kept {
		sales = append(sales, kept[i].toDomain(bySale[kept[i].ID]))
	}
	sort.SliceStable(sales, func(i, j int) bool {
		if sales[i].StartsAt.Equal(sales[j].StartsAt) {
			return sales[i].ID < sales[j].ID
		}
		return sales[i].StartsAt.Before(sales[j].StartsAt)
	})
	return sales, nil
}

func (r *SaleRepository) UpdateSale(ctx context.Context, s *sale.Sale, expectedVersion int64) error {
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := monitoring.InstrumentExec(ctx, tx, "UPDATE", "sales", tx.Rebind(`
			UPDATE sales
			SET title = ?, description = ?, starts_at = ?, ends_at = ?, manually_disabled = ?,
				version = version + 1, updated_at = ?
			WHERE id = ? AND version = ? AND deleted_at IS NULL
		`), s.Title, s.Description, s.StartsAt.UTC(), s.EndsAt.UTC(), s.ManuallyDisabled,
			s.UpdatedAt.UTC(), s.ID, expectedVersion)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missingOrConflict(ctx, tx, s.ID)
		}

		var stored []offerRow
		query := tx.Rebind(`SELECT ` + offerColumns + ` FROM sale_offers WHERE sale_id = ?`)
		if err := monitoring.InstrumentSelect(ctx, tx, &stored, "SELECT", "sale_offers", query, s.ID); err != nil {
			return err
		}

		incoming := make(map[string]bool, len(s.Offers))
		for _, o := range s.Offers {
			incoming[o.ID] = true
		}
		existing := make(map[string]bool, len(stored))
		for _, o := range stored {
			existing[o.ID] = true
			if incoming[o.ID] {
				continue
			}
			res, err := monitoring.InstrumentExec(ctx, tx, "DELETE", "sale_offers",
				tx.Rebind(`DELETE FROM sale_offers WHERE id = ? AND sale_id = ? AND units_sold = 0`), o.ID, s.ID)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domainErrors.ErrVersionConflict
			}
		}

		for i := range s.Offers {
			o := &s.Offers[i]
			if !existing[o.ID] {
				o.UnitsSold = 0
				if err := insertOffer(ctx, tx, s.ID, i, o); err != nil {
					return err
				}
				continue
			}

			// Stock may not drop below committed units, the per-buyer cap may
			// not drop below any buyer's total, and prices are frozen once
			// anything has sold.
			res, err := monitoring.InstrumentExec(ctx, tx, "UPDATE", "sale_offers", tx.Rebind(`
				UPDATE sale_offers
				SET position = ?, original_price = ?, sale_price = ?, discount_percentage = ?,
					total_stock = ?, max_units_per_buyer = ?
				WHERE id = ? AND sale_id = ? AND units_sold <= ?
					AND (units_sold = 0 OR (original_price = ? AND sale_price = ?))
					AND NOT EXISTS (
						SELECT 1 FROM offer_buyer_allocations
						WHERE sale_id = ? AND offer_id = ? AND quantity > ?
					)
			`), i, o.OriginalPrice, o.SalePrice, o.DiscountPercentage, o.TotalStock, o.MaxUnitsPerBuyer,
				o.ID, s.ID, o.TotalStock, o.OriginalPrice, o.SalePrice,
				s.ID, o.ID, o.MaxUnitsPerBuyer)
			if err != nil {
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return domainErrors.ErrVersionConflict
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Version = expectedVersion + 1
	return nil
}

func missingOrConflict(ctx context.Context, tx *sqlx.Tx, id string) error {
	var count int
	query := tx.Rebind(`SELECT COUNT(*) FROM sales WHERE id = ? AND deleted_at IS NULL`)
	if err := monitoring.InstrumentGet(ctx, tx, &count, "SELECT", "sales", query, id); err != nil {
		return err
	}
	if count == 0 {
		return domainErrors.ErrSaleNotFound
	}
	return domainErrors.ErrVersionConflict
}

func (r *SaleRepository) DeleteSale(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := monitoring.InstrumentExec(ctx, tx, "DELETE", "sales", tx.Rebind(`
			DELETE FROM sales WHERE id = ? AND deleted_at IS NULL AND total_units_sold = 0
		`), id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var count int
			query := tx.Rebind(`SELECT COUNT(*) FROM sales WHERE id = ? AND deleted_at IS NULL`)
			if err := monitoring.InstrumentGet(ctx, tx, &count, "SELECT", "sales", query, id); err != nil {
				return err
			}
			if count == 0 {
				return domainErrors.ErrSaleNotFound
			}
			return domainErrors.ErrSaleHasReservations
		}

		// No-ops when the foreign keys cascade.
		if _, err := monitoring.InstrumentExec(ctx, tx, "DELETE", "sale_offers",
			tx.Rebind(`DELETE FROM sale_offers WHERE sale_id = ?`), id); err != nil {
			return err
		}
		_, err = monitoring.InstrumentExec(ctx, tx, "DELETE", "offer_buyer_allocations",
			tx.Rebind(`DELETE FROM offer_buyer_allocations WHERE sale_id = ?`), id)
		return err
	})
}

func (r *SaleRepository) SoftDeleteSale(ctx context.Context, id string, at time.Time) error {
	res, err := monitoring.InstrumentExec(ctx, r.db, "UPDATE", "sales", r.db.Rebind(`
		UPDATE sales
		SET deleted_at = ?, manually_disabled = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`), at.UTC(), true, at.UTC(), id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainErrors.ErrSaleNotFound
	}
	return nil
}

func (r *SaleRepository) RecordView(ctx context.Context, id string) error {
	res, err := monitoring.InstrumentExec(ctx, r.db, "UPDATE", "sales", r.db.Rebind(`
		UPDATE sales SET total_views = total_views + 1 WHERE id = ? AND deleted_at IS NULL
	`), id)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domainErrors.ErrSaleNotFound
	}
	return nil
}

func (r *SaleRepository) ReserveUnits(ctx context.Context, req sale.ReserveRequest) (*sale.ReservationReceipt, error) {
	var receipt *sale.ReservationReceipt

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		// The counter bump doubles as the row lock for the whole sale.
		res, err := monitoring.InstrumentExec(ctx, tx, "UPDATE", "sales", tx.Rebind(`
			UPDATE sales SET total_units_sold = total_units_sold + ?
			WHERE id = ? AND deleted_at IS NULL
		`), req.Quantity, req.SaleID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domainErrors.ErrSaleNotFound
		}

		var header saleRow
		query := tx.Rebind(`SELECT ` + saleColumns + ` FROM sales WHERE id = ?`)
		if err := monitoring.InstrumentGet(ctx, tx, &header, "SELECT", "sales", query, req.SaleID); err != nil {
			return err
		}

		var offer offerRow
		query = tx.Rebind(`SELECT ` + offerColumns + ` FROM sale_offers WHERE id = ? AND sale_id = ?`)
		if err := monitoring.InstrumentGet(ctx, tx, &offer, "SELECT", "sale_offers", query, req.OfferID, req.SaleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domainErrors.ErrOfferNotFound
			}
			return err
		}

		s := header.toDomain(nil)
		if sale.EvaluatePhase(s, req.Now) != sale.PhaseActive {
			return domainErrors.ErrSaleNotActive
		}

		buyerTotal, err := buyerTotal(ctx, tx, req.SaleID, req.OfferID, req.BuyerID)
		if err != nil {
			return err
		}

		current := offer.toDomain()
		if _, err := sale.CheckReservation(req, &current, buyerTotal); err != nil {
			return err
		}

		var unitsSold int
		err = monitoring.InstrumentQueryRow(ctx, tx, "UPDATE", "sale_offers", tx.Rebind(`
			UPDATE sale_offers SET units_sold = units_sold + ?
			WHERE id = ? AND sale_id = ? AND units_sold + ? <= total_stock
			RETURNING units_sold
		`), req.Quantity, req.OfferID, req.SaleID, req.Quantity).Scan(&unitsSold)
		if errors.Is(err, sql.ErrNoRows) {
			return &domainErrors.InsufficientStockError{Remaining: current.RemainingStock()}
		}
		if err != nil {
			return err
		}

		var quantity int
		err = monitoring.InstrumentQueryRow(ctx, tx, "UPSERT", "offer_buyer_allocations", tx.Rebind(`
			INSERT INTO offer_buyer_allocations (id, sale_id, offer_id, buyer_id, quantity, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (sale_id, offer_id, buyer_id) DO UPDATE
			SET quantity = offer_buyer_allocations.quantity + excluded.quantity,
				updated_at = excluded.updated_at
			WHERE offer_buyer_allocations.quantity + excluded.quantity <= ?
			RETURNING quantity
		`), uuid.NewString(), req.SaleID, req.OfferID, req.BuyerID, req.Quantity, req.Now.UTC(),
			current.MaxUnitsPerBuyer).Scan(&quantity)
		if errors.Is(err, sql.ErrNoRows) {
			remaining := current.MaxUnitsPerBuyer - buyerTotal
			if remaining < 0 {
				remaining = 0
			}
			return &domainErrors.QuotaExceededError{Remaining: remaining}
		}
		if err != nil {
			return err
		}

		current.UnitsSold = unitsSold
		receipt = sale.NewReceipt(req, &current, quantity)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (r *SaleRepository) BuyerTotal(ctx context.Context, saleID, offerID, buyerID string) (int, error) {
	total, err := buyerTotal(ctx, r.db, saleID, offerID, buyerID)
	return total, classify(err)
}

func buyerTotal(ctx context.Context, q sqlx.QueryerContext, saleID, offerID, buyerID string) (int, error) {
	var quantity int
	query := sqlx.Rebind(sqlx.BindType(driverName(q)), `
		SELECT quantity FROM offer_buyer_allocations
		WHERE sale_id = ? AND offer_id = ? AND buyer_id = ?
	`)
	err := monitoring.InstrumentGet(ctx, q, &quantity, "SELECT", "offer_buyer_allocations", query, saleID, offerID, buyerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return quantity, err
}

func driverName(q sqlx.QueryerContext) string {
	if d, ok := q.(interface{ DriverName() string }); ok {
		return d.DriverName()
	}
	return ""
}

func (r *SaleRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SaleRepository) Close() error {
	return r.db.Close()
}
