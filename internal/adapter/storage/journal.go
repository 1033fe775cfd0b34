package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibrahimkeyboad/govend/internal/core/domain"
	"github.com/ibrahimkeyboad/govend/internal/core/vending"
)

// Journal is an audit trail of vend attempts. It is write-mostly and never
// used to rebuild machine or account state.
type Journal interface {
	Record(ctx context.Context, r vending.Receipt) error
	History(ctx context.Context, machineID uuid.UUID, limit int) ([]vending.Receipt, error)
}

// MemoryJournal keeps the most recent receipts per machine.
type MemoryJournal struct {
	mu       sync.RWMutex
	capacity int
	byMach   map[uuid.UUID][]vending.Receipt
}

func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryJournal{capacity: capacity, byMach: make(map[uuid.UUID][]vending.Receipt)}
}

func (j *MemoryJournal) Record(_ context.Context, r vending.Receipt) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	entries := append(j.byMach[r.MachineID], r)
	if len(entries) > j.capacity {
		entries = entries[len(entries)-j.capacity:]
	}
	j.byMach[r.MachineID] = entries
	return nil
}

// History returns the newest receipts first.
func (j *MemoryJournal) History(_ context.Context, machineID uuid.UUID, limit int) ([]vending.Receipt, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	entries := j.byMach[machineID]
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]vending.Receipt, 0, limit)
	for i := len(entries) - 1; i >= len(entries)-limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// PostgresJournal appends receipts to the vend_receipts table.
type PostgresJournal struct {
	Db *pgxpool.Pool
}

func NewPostgresJournal(db *pgxpool.Pool) *PostgresJournal {
	return &PostgresJournal{Db: db}
}

func (j *PostgresJournal) Record(ctx context.Context, r vending.Receipt) error {
	_, err := j.Db.Exec(ctx, `
		INSERT INTO vend_receipts
			(id, machine_id, card_id, account_id, quantity, approved, reason, charged, balance_after, stock_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.MachineID, r.CardID, r.AccountID, r.Quantity, r.Approved, string(r.Reason),
		r.Charged.Amount.String(), r.BalanceAfter.Amount.String(), r.StockAfter, r.At)
	if err != nil {
		return fmt.Errorf("failed to record receipt: %w", err)
	}
	return nil
}

// History fetches the last receipts for a machine
func (j *PostgresJournal) History(ctx context.Context, machineID uuid.UUID, limit int) ([]vending.Receipt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.Db.Query(ctx, `
		SELECT id, machine_id, card_id, account_id, quantity, approved, reason,
		       charged::text, balance_after::text, stock_after, created_at
		FROM vend_receipts
		WHERE machine_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, machineID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()

	var out []vending.Receipt
	for rows.Next() {
		var r vending.Receipt
		var reason, charged, balance string
		if err := rows.Scan(&r.ID, &r.MachineID, &r.CardID, &r.AccountID, &r.Quantity, &r.Approved,
			&reason, &charged, &balance, &r.StockAfter, &r.At); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		r.Reason = vending.Reason(reason)
		if r.Charged, err = domain.NewMoney(charged); err != nil {
			return nil, err
		}
		if r.BalanceAfter, err = domain.NewMoney(balance); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
