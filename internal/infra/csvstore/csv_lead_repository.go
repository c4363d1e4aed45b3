// Package csvstore persists leads in a single CSV file, the layout the
// intake data originates from: one flat row per lead, every field a string.
// It is the store used when no database is configured.
package csvstore

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"sync"

	"lead_intake_bot/internal/domain/lead"
)

var fieldNames = []string{
	"lead_id", "name", "age", "country", "interest", "status",
	"last_agent_msg_ts", "follow_up_sent_flag",
}

// CSVLeadRepository is a lead.Repository over one CSV file. Every operation
// holds the store-wide mutex for its full read-modify-write span.
type CSVLeadRepository struct {
	mu       sync.Mutex
	filename string
}

// NewCSVLeadRepository opens (creating if needed) the backing file and writes
// the header row when the file is new or empty.
func NewCSVLeadRepository(filename string) (*CSVLeadRepository, error) {
	r := &CSVLeadRepository{filename: filename}

	info, err := os.Stat(filename)
	if err == nil && info.Size() > 0 {
		return r, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat leads file %s: %w", filename, err)
	}
	if err := r.writeAll(nil); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *CSVLeadRepository) readAll() (map[string]map[string]string, error) {
	f, err := os.Open(r.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to open leads file %s: %w", r.filename, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read leads file %s: %w", r.filename, err)
	}

	rows := make(map[string]map[string]string)
	for i, record := range records {
		if i == 0 {
			continue // header
		}
		row := make(map[string]string, len(fieldNames))
		for j, field := range fieldNames {
			if j < len(record) {
				row[field] = record[j]
			} else {
				row[field] = ""
			}
		}
		if row["lead_id"] != "" {
			rows[row["lead_id"]] = row
		}
	}
	return rows, nil
}

func (r *CSVLeadRepository) writeAll(rows map[string]map[string]string) error {
	f, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("failed to write leads file %s: %w", r.filename, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(fieldNames); err != nil {
		return fmt.Errorf("failed to write leads header: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		row := rows[id]
		record := make([]string, len(fieldNames))
		for j, field := range fieldNames {
			record[j] = row[field]
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write lead row %s: %w", id, err)
		}
	}
	w.Flush()
	return w.Error()
}

func rowToLead(row map[string]string) *lead.Lead {
	l := &lead.Lead{
		ID:       row["lead_id"],
		Name:     row["name"],
		Age:      row["age"],
		Country:  row["country"],
		Interest: row["interest"],
		Status:   lead.Status(row["status"]),
	}
	if ts, err := lead.ParseTimestamp(row["last_agent_msg_ts"]); err == nil {
		l.LastAgentMsgAt = ts
	}
	l.FollowUpSent = lead.ParseFlag(row["follow_up_sent_flag"])
	return l
}

func (r *CSVLeadRepository) Upsert(_ context.Context, leadID string, m lead.Mutation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.readAll()
	if err != nil {
		return err
	}

	current := &lead.Lead{ID: leadID}
	if row, ok := rows[leadID]; ok {
		current = rowToLead(row)
	}
	m.ApplyTo(current)

	rows[leadID] = map[string]string{
		"lead_id":             leadID,
		"name":                current.Name,
		"age":                 current.Age,
		"country":             current.Country,
		"interest":            current.Interest,
		"status":              string(current.Status),
		"last_agent_msg_ts":   lead.FormatTimestamp(current.LastAgentMsgAt),
		"follow_up_sent_flag": lead.FormatFlag(current.FollowUpSent),
	}
	return r.writeAll(rows)
}

func (r *CSVLeadRepository) Get(_ context.Context, leadID string) (*lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.readAll()
	if err != nil {
		return nil, err
	}
	row, ok := rows[leadID]
	if !ok {
		return nil, lead.ErrLeadNotFound
	}
	return rowToLead(row), nil
}

func (r *CSVLeadRepository) ListActiveForFollowUp(_ context.Context) ([]lead.FollowUpCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.readAll()
	if err != nil {
		return nil, err
	}

	candidates := make([]lead.FollowUpCandidate, 0)
	for _, row := range rows {
		status := lead.Status(row["status"])
		if lead.IsTerminal(status) || row["last_agent_msg_ts"] == "" {
			continue
		}
		candidates = append(candidates, lead.FollowUpCandidate{
			LeadID:         row["lead_id"],
			LastAgentMsgAt: row["last_agent_msg_ts"],
			FollowUpSent:   lead.ParseFlag(row["follow_up_sent_flag"]),
			Status:         status,
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].LeadID < candidates[j].LeadID })
	return candidates, nil
}

func (r *CSVLeadRepository) ListAll(_ context.Context) ([]*lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.readAll()
	if err != nil {
		return nil, err
	}
	all := make([]*lead.Lead, 0, len(rows))
	for _, row := range rows {
		all = append(all, rowToLead(row))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}
