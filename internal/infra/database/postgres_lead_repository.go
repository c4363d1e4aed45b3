package database

import (
	"context"
	"database/sql"
	"fmt"

	"lead_intake_bot/internal/domain/lead"

	"github.com/lib/pq" // For pq.Array and driver registration
)

// PostgresLeadRepository persists leads in the flat, string-typed layout the
// intake core expects. Upsert runs the read-modify-write merge inside one
// transaction with a row lock, because the turn path and the follow-up sweep
// write concurrently.
type PostgresLeadRepository struct {
	db *sql.DB
}

func NewPostgresLeadRepository(db *sql.DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{db: db}
}

const leadColumns = `lead_id, name, age, country, interest, status, last_agent_msg_ts, follow_up_sent, created_at, updated_at`

func scanLead(scan func(dest ...any) error) (*lead.Lead, error) {
	l := &lead.Lead{}
	var ts, flag, status string
	if err := scan(&l.ID, &l.Name, &l.Age, &l.Country, &l.Interest, &status, &ts, &flag, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.Status = lead.Status(status)
	// Parse defensively: a malformed stored timestamp reads as "no reply
	// pending" instead of failing the whole call.
	parsed, err := lead.ParseTimestamp(ts)
	if err == nil {
		l.LastAgentMsgAt = parsed
	}
	l.FollowUpSent = lead.ParseFlag(flag)
	return l, nil
}

func (r *PostgresLeadRepository) Upsert(ctx context.Context, leadID string, m lead.Mutation) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	query := `SELECT ` + leadColumns + ` FROM leads WHERE lead_id = $1 FOR UPDATE`
	current, err := scanLead(txn.QueryRowContext(ctx, query, leadID).Scan)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("error reading lead %s for upsert: %w", leadID, err)
	}

	if err == sql.ErrNoRows {
		current = &lead.Lead{ID: leadID}
		m.ApplyTo(current)
		insert := `INSERT INTO leads (lead_id, name, age, country, interest, status, last_agent_msg_ts, follow_up_sent)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
		_, err = txn.ExecContext(ctx, insert,
			leadID, current.Name, current.Age, current.Country, current.Interest,
			string(current.Status), lead.FormatTimestamp(current.LastAgentMsgAt), lead.FormatFlag(current.FollowUpSent))
		if err != nil {
			return fmt.Errorf("error inserting lead %s: %w", leadID, err)
		}
	} else {
		m.ApplyTo(current)
		update := `UPDATE leads
                    SET name = $1, age = $2, country = $3, interest = $4, status = $5,
                        last_agent_msg_ts = $6, follow_up_sent = $7, updated_at = NOW()
                    WHERE lead_id = $8`
		_, err = txn.ExecContext(ctx, update,
			current.Name, current.Age, current.Country, current.Interest, string(current.Status),
			lead.FormatTimestamp(current.LastAgentMsgAt), lead.FormatFlag(current.FollowUpSent), leadID)
		if err != nil {
			return fmt.Errorf("error updating lead %s: %w", leadID, err)
		}
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("error committing upsert for lead %s: %w", leadID, err)
	}
	return nil
}

func (r *PostgresLeadRepository) Get(ctx context.Context, leadID string) (*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE lead_id = $1`
	l, err := scanLead(r.db.QueryRowContext(ctx, query, leadID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, lead.ErrLeadNotFound
		}
		return nil, fmt.Errorf("error getting lead by ID: %w", err)
	}
	return l, nil
}

func (r *PostgresLeadRepository) ListActiveForFollowUp(ctx context.Context) ([]lead.FollowUpCandidate, error) {
	excluded := make([]string, 0, len(lead.TerminalStatuses))
	for _, s := range lead.TerminalStatuses {
		excluded = append(excluded, string(s))
	}

	query := `SELECT lead_id, last_agent_msg_ts, follow_up_sent, status
               FROM leads
               WHERE NOT (status = ANY($1)) AND last_agent_msg_ts <> ''
               ORDER BY lead_id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(excluded))
	if err != nil {
		return nil, fmt.Errorf("error listing leads for follow-up: %w", err)
	}
	defer rows.Close()

	candidates := make([]lead.FollowUpCandidate, 0)
	for rows.Next() {
		var c lead.FollowUpCandidate
		var flag, status string
		if err := rows.Scan(&c.LeadID, &c.LastAgentMsgAt, &flag, &status); err != nil {
			return nil, fmt.Errorf("error scanning follow-up candidate: %w", err)
		}
		c.FollowUpSent = lead.ParseFlag(flag)
		c.Status = lead.Status(status)
		candidates = append(candidates, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follow-up candidates: %w", err)
	}
	return candidates, nil
}

func (r *PostgresLeadRepository) ListAll(ctx context.Context) ([]*lead.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY lead_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing all leads: %w", err)
	}
	defer rows.Close()

	all := make([]*lead.Lead, 0)
	for rows.Next() {
		l, err := scanLead(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("error scanning lead from all list: %w", err)
		}
		all = append(all, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating all leads: %w", err)
	}
	return all, nil
}
