// Package recon is the reconciliation core: it assigns scored candidate
// pairs one-to-one, owns the resulting ReconciliationRun, and applies manual
// match edits without re-running the pipeline.
//
// A Run maintains the conservation invariant at all times:
//
//	len(matches) + len(unmatched invoices) == total invoices
//	len(matches) + len(unmatched bank)     == total bank records
//
// All mutations on one Run are serialized by its mutex; independent runs
// share nothing.
package recon

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reconly/reconcile-backend/internal/domain/record"
)

// Match is a confirmed invoice/bank pairing, automatic or manual. The ID is
// assigned at creation and stable for the life of the match; it is never a
// position in a slice.
type Match struct {
	ID           string    `json:"id"`
	RunID        string    `json:"run_id"`
	InvoiceIndex int       `json:"invoice_index"`
	BankIndex    int       `json:"bank_index"`
	Score        float64   `json:"score"`
	Manual       bool      `json:"manual"`
	CreatedAt    time.Time `json:"created_at"`
}

// Run is the result set of one matching operation plus all manual edits
// applied since. It references the caller's record slices, never copies
// them.
type Run struct {
	ID        string
	Threshold float64
	CreatedAt time.Time

	mu       sync.Mutex
	invoices []record.Record
	bank     []record.Record

	matches  []Match
	matchPos map[string]int // match id -> position in matches

	unmatchedInv  []int       // invoice indices, unordered
	unmatchedBank []int       // bank indices, unordered
	invPos        map[int]int // invoice index -> position in unmatchedInv
	bankPos       map[int]int // bank index -> position in unmatchedBank

	candidateCount int
	crossProduct   int
}

// newMatchID mints a fresh, never-reused match identity.
func newMatchID() string {
	return uuid.NewString()
}

// NewRunID builds a reconciliation id like REC-20240115-3F2A9C01.
func NewRunID(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:8])
	return fmt.Sprintf("REC-%s-%s", now.Format("20060102"), suffix)
}

// newRun wires an empty run where every record starts unmatched.
func newRun(id string, threshold float64, invoices, bank []record.Record, now time.Time) *Run {
	r := &Run{
		ID:        id,
		Threshold: threshold,
		CreatedAt: now,
		invoices:  invoices,
		bank:      bank,
		matchPos:  make(map[string]int),
		invPos:    make(map[int]int, len(invoices)),
		bankPos:   make(map[int]int, len(bank)),
	}
	r.unmatchedInv = make([]int, len(invoices))
	for i := range invoices {
		r.unmatchedInv[i] = i
		r.invPos[i] = i
	}
	r.unmatchedBank = make([]int, len(bank))
	for j := range bank {
		r.unmatchedBank[j] = j
		r.bankPos[j] = j
	}
	return r
}

// accept records an accepted pair. Only used while building the initial
// match set; both endpoints must still be unmatched.
func (r *Run) accept(m Match) {
	r.matchPos[m.ID] = len(r.matches)
	r.matches = append(r.matches, m)
	r.removeUnmatchedInvoice(m.InvoiceIndex)
	r.removeUnmatchedBank(m.BankIndex)
}

// CreateManualMatch pairs two currently-unmatched records with a forced
// score of 1.0. It fails with ErrDuplicateMatch when either ref already
// appears in a match and ErrNotFound when a ref is outside the run. The run
// is never re-scored.
func (r *Run) CreateManualMatch(invoiceIndex, bankIndex int) (Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if invoiceIndex < 0 || invoiceIndex >= len(r.invoices) {
		return Match{}, fmt.Errorf("invoice ref %d: %w", invoiceIndex, ErrNotFound)
	}
	if bankIndex < 0 || bankIndex >= len(r.bank) {
		return Match{}, fmt.Errorf("bank ref %d: %w", bankIndex, ErrNotFound)
	}
	if _, free := r.invPos[invoiceIndex]; !free {
		return Match{}, fmt.Errorf("invoice ref %d: %w", invoiceIndex, ErrDuplicateMatch)
	}
	if _, free := r.bankPos[bankIndex]; !free {
		return Match{}, fmt.Errorf("bank ref %d: %w", bankIndex, ErrDuplicateMatch)
	}

	m := Match{
		ID:           uuid.NewString(),
		RunID:        r.ID,
		InvoiceIndex: invoiceIndex,
		BankIndex:    bankIndex,
		Score:        1.0,
		Manual:       true,
		CreatedAt:    time.Now().UTC(),
	}
	r.matchPos[m.ID] = len(r.matches)
	r.matches = append(r.matches, m)
	r.removeUnmatchedInvoice(invoiceIndex)
	r.removeUnmatchedBank(bankIndex)
	return m, nil
}

// DeleteMatch removes a match and returns both records to their unmatched
// lists. The underlying records are untouched; only the relationship goes
// away. Match ids are never reused.
func (r *Run) DeleteMatch(matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.matchPos[matchID]
	if !ok {
		return fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	m := r.matches[pos]

	last := len(r.matches) - 1
	if pos != last {
		r.matches[pos] = r.matches[last]
		r.matchPos[r.matches[pos].ID] = pos
	}
	r.matches = r.matches[:last]
	delete(r.matchPos, matchID)

	r.addUnmatchedInvoice(m.InvoiceIndex)
	r.addUnmatchedBank(m.BankIndex)
	return nil
}

func (r *Run) removeUnmatchedInvoice(idx int) {
	pos := r.invPos[idx]
	last := len(r.unmatchedInv) - 1
	if pos != last {
		r.unmatchedInv[pos] = r.unmatchedInv[last]
		r.invPos[r.unmatchedInv[pos]] = pos
	}
	r.unmatchedInv = r.unmatchedInv[:last]
	delete(r.invPos, idx)
}

func (r *Run) removeUnmatchedBank(idx int) {
	pos := r.bankPos[idx]
	last := len(r.unmatchedBank) - 1
	if pos != last {
		r.unmatchedBank[pos] = r.unmatchedBank[last]
		r.bankPos[r.unmatchedBank[pos]] = pos
	}
	r.unmatchedBank = r.unmatchedBank[:last]
	delete(r.bankPos, idx)
}

func (r *Run) addUnmatchedInvoice(idx int) {
	r.invPos[idx] = len(r.unmatchedInv)
	r.unmatchedInv = append(r.unmatchedInv, idx)
}

func (r *Run) addUnmatchedBank(idx int) {
	r.bankPos[idx] = len(r.unmatchedBank)
	r.unmatchedBank = append(r.unmatchedBank, idx)
}

// TotalInvoices is the invoice input size.
func (r *Run) TotalInvoices() int { return len(r.invoices) }

// TotalBank is the bank input size.
func (r *Run) TotalBank() int { return len(r.bank) }

// Invoice returns the invoice record at the given ref.
func (r *Run) Invoice(idx int) record.Record { return r.invoices[idx] }

// Bank returns the bank record at the given ref.
func (r *Run) Bank(idx int) record.Record { return r.bank[idx] }

// Matches returns a copy of the current match set, ordered by creation.
func (r *Run) Matches() []Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Match, len(r.matches))
	copy(out, r.matches)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].InvoiceIndex < out[j].InvoiceIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Snapshot is a point-in-time view of a run's match set and unmatched
// pools, taken under one lock acquisition so the conservation invariant
// holds across all three fields.
type Snapshot struct {
	Matches           []Match
	UnmatchedInvoices []int
	UnmatchedBank     []int
}

// Snapshot copies the match set and both unmatched lists atomically.
// Matches are ordered by creation time, unmatched refs ascending.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Matches:           make([]Match, len(r.matches)),
		UnmatchedInvoices: make([]int, len(r.unmatchedInv)),
		UnmatchedBank:     make([]int, len(r.unmatchedBank)),
	}
	copy(s.Matches, r.matches)
	sort.Slice(s.Matches, func(i, j int) bool {
		if s.Matches[i].CreatedAt.Equal(s.Matches[j].CreatedAt) {
			return s.Matches[i].InvoiceIndex < s.Matches[j].InvoiceIndex
		}
		return s.Matches[i].CreatedAt.Before(s.Matches[j].CreatedAt)
	})
	copy(s.UnmatchedInvoices, r.unmatchedInv)
	sort.Ints(s.UnmatchedInvoices)
	copy(s.UnmatchedBank, r.unmatchedBank)
	sort.Ints(s.UnmatchedBank)
	return s
}

// GetMatch looks a match up by id.
func (r *Run) GetMatch(matchID string) (Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pos, ok := r.matchPos[matchID]
	if !ok {
		return Match{}, false
	}
	return r.matches[pos], true
}

// CandidateCount is the number of pairs the generator produced for this run.
func (r *Run) CandidateCount() int { return r.candidateCount }

// CrossProductSize is len(invoices) * len(bank) for this run.
func (r *Run) CrossProductSize() int { return r.crossProduct }

// UnmatchedInvoiceIndices returns the currently unmatched invoice refs in
// ascending order.
func (r *Run) UnmatchedInvoiceIndices() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.unmatchedInv))
	copy(out, r.unmatchedInv)
	sort.Ints(out)
	return out
}

// UnmatchedBankIndices returns the currently unmatched bank refs in
// ascending order.
func (r *Run) UnmatchedBankIndices() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.unmatchedBank))
	copy(out, r.unmatchedBank)
	sort.Ints(out)
	return out
}
