package transformer

import (
	"errors"
	"fmt"
	"strings"

	"salesetl/internal/domain"
)

// UnmatchedPolicy selects what happens to a sale whose client_id has no entry
// in the client directory.
type UnmatchedPolicy string

const (
	// UnmatchedKeep keeps the sale with empty client attributes. Its revenue
	// still counts.
	UnmatchedKeep UnmatchedPolicy = "keep"
	// UnmatchedDrop removes the sale from the joined set.
	UnmatchedDrop UnmatchedPolicy = "drop"
	// UnmatchedFail aborts the join on the first unmatched sale.
	UnmatchedFail UnmatchedPolicy = "fail"
)

// ParseUnmatchedPolicy accepts "keep", "drop", or "fail" (case-insensitive).
// An empty string selects UnmatchedKeep.
func ParseUnmatchedPolicy(s string) (UnmatchedPolicy, error) {
	switch p := UnmatchedPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return UnmatchedKeep, nil
	case UnmatchedKeep, UnmatchedDrop, UnmatchedFail:
		return p, nil
	default:
		return "", fmt.Errorf("unknown unmatched-client policy %q (want keep, drop, or fail)", s)
	}
}

// ErrUnmatchedClient is returned by LeftJoin under UnmatchedFail.
var ErrUnmatchedClient = errors.New("sale references unknown client")

// ClientIndex maps a normalised client_id to its directory entry.
type ClientIndex map[string]domain.Client

// IndexClients builds the join index. The first occurrence of a client_id
// wins; later duplicates are counted and reported to onDuplicate. Rows with
// an empty client_id are ignored.
func IndexClients(clients []domain.Client, onDuplicate RejectFn) (ClientIndex, int) {
	idx := make(ClientIndex, len(clients))
	dups := 0
	for _, c := range clients {
		c.ClientID = NormalizeText(c.ClientID)
		if c.ClientID == "" {
			continue
		}
		if _, ok := idx[c.ClientID]; ok {
			dups++
			onDuplicate.call(c.Row, "duplicate client_id "+quote(c.ClientID))
			continue
		}
		c.Name = NormalizeText(c.Name)
		c.Region = NormalizeText(c.Region)
		idx[c.ClientID] = c
	}
	return idx, dups
}

// JoinStats summarises a LeftJoin.
type JoinStats struct {
	Matched   int
	Unmatched int
	Dropped   int
}

// LeftJoin attaches client name and region to every sale, preserving input
// order, and derives the sale month. Sales without a client are handled per
// policy and always reported to onUnmatched.
func LeftJoin(in []domain.CleanSale, idx ClientIndex, policy UnmatchedPolicy, onUnmatched RejectFn) ([]domain.JoinedSale, JoinStats, error) {
	var st JoinStats
	out := make([]domain.JoinedSale, 0, len(in))
	for _, s := range in {
		j := domain.JoinedSale{CleanSale: s, Month: domain.MonthOf(s.Date)}

		c, ok := idx[s.ClientID]
		if ok {
			j.Name, j.Region, j.Matched = c.Name, c.Region, true
			st.Matched++
			out = append(out, j)
			continue
		}

		st.Unmatched++
		onUnmatched.call(s.Line, "no client for client_id "+quote(s.ClientID))
		switch policy {
		case UnmatchedFail:
			return nil, st, fmt.Errorf("line %d: client_id %q: %w", s.Line, s.ClientID, ErrUnmatchedClient)
		case UnmatchedDrop:
			st.Dropped++
		default:
			out = append(out, j)
		}
	}
	return out, st, nil
}
