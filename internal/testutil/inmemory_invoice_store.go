package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/firedesk/firedesk/internal/domain/invoice"
	ierr "github.com/firedesk/firedesk/internal/errors"
	"github.com/firedesk/firedesk/internal/types"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	mu        sync.RWMutex
	invoices  map[string]*invoice.Invoice
	sequences map[string]int // per-tenant invoice number sequence
}

// NewInMemoryInvoiceStore creates a new in-memory invoice store
func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		invoices:  make(map[string]*invoice.Invoice),
		sequences: make(map[string]int),
	}
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	if inv.PaidAt != nil {
		paidAt := *inv.PaidAt
		c.PaidAt = &paidAt
	}
	if inv.LineItems != nil {
		c.LineItems = make([]*invoice.LineItem, len(inv.LineItems))
		for i, item := range inv.LineItems {
			itemCopy := *item
			c.LineItems[i] = &itemCopy
		}
	}
	return &c
}

func (s *InMemoryInvoiceStore) CreateWithLineItems(ctx context.Context, inv *invoice.Invoice) error {
	if inv == nil {
		return ierr.NewError("invoice cannot be nil").Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.ID]; exists {
		return ierr.NewError("invoice already exists").Mark(ierr.ErrAlreadyExists)
	}
	for _, existing := range s.invoices {
		if existing.TenantID == inv.TenantID && existing.InvoiceNumber == inv.InvoiceNumber {
			return ierr.NewErrorf("invoice number %s already used", inv.InvoiceNumber).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	s.invoices[inv.ID] = copyInvoice(inv)
	return nil
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, found := s.invoices[id]
	if !found {
		return nil, ierr.WithError(invoice.ErrInvoiceNotFound).
			WithHintf("Invoice %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	c := copyInvoice(inv)
	sort.Slice(c.LineItems, func(i, j int) bool {
		return c.LineItems[i].LineNumber < c.LineItems[j].LineNumber
	})
	return c, nil
}

func (s *InMemoryInvoiceStore) List(ctx context.Context, filter *types.InvoiceFilter) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID := types.GetTenantID(ctx)
	var result []*invoice.Invoice
	for _, inv := range s.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		if filter != nil {
			if filter.InvoiceStatus != "" && inv.InvoiceStatus != filter.InvoiceStatus {
				continue
			}
			if filter.PeriodStart != nil && inv.PeriodEnd.Before(*filter.PeriodStart) {
				continue
			}
			if filter.PeriodEnd != nil && inv.PeriodStart.After(*filter.PeriodEnd) {
				continue
			}
		}
		result = append(result, copyInvoice(inv))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].IssueDate.After(result[j].IssueDate)
	})

	limit := filter.GetLimit()
	offset := 0
	if filter != nil && filter.Offset > 0 {
		offset = filter.Offset
	}
	if offset >= len(result) {
		return []*invoice.Invoice{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (s *InMemoryInvoiceStore) UpdateStatus(ctx context.Context, id string, status types.InvoiceStatus, paidAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, found := s.invoices[id]
	if !found {
		return ierr.WithError(invoice.ErrInvoiceNotFound).Mark(ierr.ErrNotFound)
	}
	if !inv.CanTransitionTo(status) {
		return ierr.WithError(invoice.ErrInvalidStatusTransition).
			WithHintf("Cannot move a %s invoice to %s", inv.InvoiceStatus, status).
			Mark(ierr.ErrInvalidOperation)
	}

	updated := copyInvoice(inv)
	updated.InvoiceStatus = status
	if paidAt != nil {
		updated.PaidAt = paidAt
	}
	updated.UpdatedAt = time.Now().UTC()
	s.invoices[id] = updated
	return nil
}

func (s *InMemoryInvoiceStore) ListOverdueCandidates(ctx context.Context, now time.Time) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for _, inv := range s.invoices {
		if inv.InvoiceStatus == types.InvoiceStatusIssued && inv.DueDate.Before(now) {
			result = append(result, copyInvoice(inv))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.Before(result[j].DueDate)
	})
	return result, nil
}

func (s *InMemoryInvoiceStore) NextInvoiceNumber(ctx context.Context, tenantID, prefix, tenantCode string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequences[tenantID]++
	return fmt.Sprintf("%s-%s-%05d", prefix, tenantCode, s.sequences[tenantID]), nil
}

// Clear removes all invoices and sequences from the store
func (s *InMemoryInvoiceStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = make(map[string]*invoice.Invoice)
	s.sequences = make(map[string]int)
}
