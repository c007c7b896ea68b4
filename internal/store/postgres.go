package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Margins are stored as NUMERIC for exact decimal precision; prices and
// amounts are scaled integers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema applies the embedded migrations in file name order. Every
// statement is idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

const offerColumns = `id, date, owner_fingerprint, direction, base_currency_code, counter_currency_code,
	price, use_market_based_price, market_price_margin::TEXT, amount, min_amount,
	payment_method_id, maker_payment_account_id, country_code, accepted_country_codes,
	bank_id, accepted_bank_ids, buyer_security_deposit, seller_security_deposit,
	maker_fee, maker_fee_currency_code, protocol_version, state, error_message`

func (s *PostgresStore) PutOffer(ctx context.Context, o *model.Offer) error {
	p := o.Payload()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO offers (id, date, owner_fingerprint, direction, base_currency_code, counter_currency_code,
		        price, use_market_based_price, market_price_margin, amount, min_amount,
		        payment_method_id, maker_payment_account_id, country_code, accepted_country_codes,
		        bank_id, accepted_bank_ids, buyer_security_deposit, seller_security_deposit,
		        maker_fee, maker_fee_currency_code, protocol_version, state, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::NUMERIC, $10, $11, $12, $13, $14, $15,
		         $16, $17, $18, $19, $20, $21, $22, $23, $24)
		 ON CONFLICT (id) DO UPDATE SET
		        price = EXCLUDED.price,
		        use_market_based_price = EXCLUDED.use_market_based_price,
		        market_price_margin = EXCLUDED.market_price_margin,
		        payment_method_id = EXCLUDED.payment_method_id,
		        maker_payment_account_id = EXCLUDED.maker_payment_account_id,
		        country_code = EXCLUDED.country_code,
		        accepted_country_codes = EXCLUDED.accepted_country_codes,
		        bank_id = EXCLUDED.bank_id,
		        accepted_bank_ids = EXCLUDED.accepted_bank_ids,
		        state = EXCLUDED.state,
		        error_message = EXCLUDED.error_message`,
		p.ID, p.Date, p.OwnerFingerprint, string(p.Direction), p.BaseCurrencyCode, p.CounterCurrencyCode,
		p.Price, p.UseMarketBasedPrice, p.MarketPriceMargin.String(), p.Amount, p.MinAmount,
		p.PaymentMethodID, p.MakerPaymentAccountID, p.CountryCode, nonNil(p.AcceptedCountryCodes),
		p.BankID, nonNil(p.AcceptedBankIDs), p.BuyerSecurityDeposit, p.SellerSecurityDeposit,
		p.MakerFee, p.MakerFeeCurrencyCode, p.ProtocolVersion, string(o.State()), o.ErrorMessage(),
	)
	return err
}

func (s *PostgresStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id)
	o, err := scanOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get offer %s: %w", id, err)
	}
	return o, nil
}

func (s *PostgresStore) ListOffers(ctx context.Context) ([]*model.Offer, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+offerColumns+` FROM offers ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (s *PostgresStore) DeleteOffer(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) PutOpenOffer(ctx context.Context, oo *model.OpenOffer) error {
	data, err := json.Marshal(oo.Offer)
	if err != nil {
		return fmt.Errorf("encode open offer %s: %w", oo.ID(), err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO open_offers (id, offer, trigger_price, state, updated_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (id) DO UPDATE SET
		        offer = EXCLUDED.offer,
		        trigger_price = EXCLUDED.trigger_price,
		        state = EXCLUDED.state,
		        updated_at = now()`,
		oo.ID(), data, oo.TriggerPrice, string(oo.State),
	)
	return err
}

func (s *PostgresStore) GetOpenOffer(ctx context.Context, id string) (*model.OpenOffer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT offer, trigger_price, state FROM open_offers WHERE id = $1`, id)
	oo, err := scanOpenOffer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("open offer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get open offer %s: %w", id, err)
	}
	return oo, nil
}

func (s *PostgresStore) ListOpenOffers(ctx context.Context) ([]*model.OpenOffer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT offer, trigger_price, state FROM open_offers ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.OpenOffer
	for rows.Next() {
		oo, err := scanOpenOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, oo)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteOpenOffer(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM open_offers WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) CreatePaymentAccount(ctx context.Context, a *model.PaymentAccount) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO payment_accounts (id, name, payment_method_id, trade_currencies, country_code,
		        accepted_country_codes, bank_id, accepted_bank_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.Name, a.PaymentMethodID, nonNil(a.TradeCurrencies), a.CountryCode,
		nonNil(a.AcceptedCountryCodes), a.BankID, nonNil(a.AcceptedBankIDs), a.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("payment account %s: %w", a.ID, ErrDuplicate)
	}
	return err
}

const accountColumns = `id, name, payment_method_id, trade_currencies, country_code,
	accepted_country_codes, bank_id, accepted_bank_ids, created_at`

func (s *PostgresStore) GetPaymentAccount(ctx context.Context, id string) (*model.PaymentAccount, error) {
	var a model.PaymentAccount
	err := s.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM payment_accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.PaymentMethodID, &a.TradeCurrencies, &a.CountryCode,
			&a.AcceptedCountryCodes, &a.BankID, &a.AcceptedBankIDs, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment account %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment account %s: %w", id, err)
	}
	return &a, nil
}

func (s *PostgresStore) ListPaymentAccounts(ctx context.Context) ([]model.PaymentAccount, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+accountColumns+` FROM payment_accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []model.PaymentAccount
	for rows.Next() {
		var a model.PaymentAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.PaymentMethodID, &a.TradeCurrencies, &a.CountryCode,
			&a.AcceptedCountryCodes, &a.BankID, &a.AcceptedBankIDs, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO fee_transactions (id, offer_id, fee, created_at) VALUES ($1, $2, $3, $4)`,
		tx.ID, tx.OfferID, tx.Fee, tx.CreatedAt,
	)
	return err
}

// scanOffer reads one offers row; pgx.Row and pgx.Rows both satisfy it.
func scanOffer(row pgx.Row) (*model.Offer, error) {
	var p model.Payload
	var direction, margin, state, errMsg string
	if err := row.Scan(&p.ID, &p.Date, &p.OwnerFingerprint, &direction, &p.BaseCurrencyCode, &p.CounterCurrencyCode,
		&p.Price, &p.UseMarketBasedPrice, &margin, &p.Amount, &p.MinAmount,
		&p.PaymentMethodID, &p.MakerPaymentAccountID, &p.CountryCode, &p.AcceptedCountryCodes,
		&p.BankID, &p.AcceptedBankIDs, &p.BuyerSecurityDeposit, &p.SellerSecurityDeposit,
		&p.MakerFee, &p.MakerFeeCurrencyCode, &p.ProtocolVersion, &state, &errMsg); err != nil {
		return nil, err
	}
	p.Direction = model.Direction(direction)
	m, err := decimal.NewFromString(margin)
	if err != nil {
		return nil, fmt.Errorf("offer %s margin %q: %w", p.ID, margin, err)
	}
	p.MarketPriceMargin = m

	o := model.NewOffer(p)
	o.SetState(model.OfferState(state))
	o.SetErrorMessage(errMsg)
	return o, nil
}

func scanOpenOffer(row pgx.Row) (*model.OpenOffer, error) {
	var data []byte
	var trigger int64
	var state string
	if err := row.Scan(&data, &trigger, &state); err != nil {
		return nil, err
	}
	o := &model.Offer{}
	if err := json.Unmarshal(data, o); err != nil {
		return nil, fmt.Errorf("decode open offer: %w", err)
	}
	return &model.OpenOffer{Offer: o, TriggerPrice: trigger, State: model.OpenOfferState(state)}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
