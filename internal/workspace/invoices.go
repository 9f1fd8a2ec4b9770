package workspace

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	invoicedomain "github.com/smallbiznis/invoicenexus/internal/invoice/domain"
	"github.com/smallbiznis/invoicenexus/internal/rowmap"
	"go.uber.org/zap"
)

// AddInvoice writes the invoice row, then its items. A failure in the second
// phase leaves the row without items and returns *PartialWriteError.
func (s *Store) AddInvoice(ctx context.Context, draft invoicedomain.Invoice) (_ invoicedomain.Invoice, err error) {
	done := s.track("add_invoice")
	defer func() { done(err) }()

	gen, err := s.begin()
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	draft = draft.Clone()
	draft.ID = ""
	claimItemIDs(draft.Items, nil)

	row, err := s.gw.InsertRow(ctx, gateway.TableInvoices, rowmap.InvoiceToRow(draft))
	if err != nil {
		s.notifyFailure(ctx, "create invoice", err)
		return invoicedomain.Invoice{}, err
	}
	invoiceID := row.ID()

	itemRows, err := s.gw.InsertRows(ctx, gateway.TableInvoiceItems, rowmap.ItemsToRows(invoiceID, draft.Items))
	if err != nil {
		err = &PartialWriteError{InvoiceID: invoiceID, Phase: PhaseInsertItems, Err: err}
		s.log.Error("invoice items not written", zap.String("invoice_id", invoiceID), zap.Error(err))
		s.notifyFailure(ctx, "create invoice", err)
		return invoicedomain.Invoice{}, err
	}

	created, err := rowmap.InvoiceFromRow(row, itemRows)
	if err != nil {
		s.notifyFailure(ctx, "create invoice", err)
		return invoicedomain.Invoice{}, err
	}

	s.commit(gen, func() {
		next := make([]invoicedomain.Invoice, 0, len(s.invoices)+1)
		next = append(next, s.invoices...)
		s.invoices = append(next, created)
	})
	s.notifySuccess(ctx, "Invoice Created", fmt.Sprintf("Invoice %s has been created.", created.InvoiceNumber))
	return created.Clone(), nil
}

// UpdateInvoice rewrites the row and replaces the whole item set: delete all,
// then insert the current items. Concurrent editors are not merged; the last
// writer wins.
func (s *Store) UpdateInvoice(ctx context.Context, inv invoicedomain.Invoice) (_ invoicedomain.Invoice, err error) {
	done := s.track("update_invoice")
	defer func() { done(err) }()

	gen, err := s.begin()
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	inv = inv.Clone()
	var owned map[string]struct{}
	if existing, ok := s.GetInvoiceByID(inv.ID); ok {
		owned = make(map[string]struct{}, len(existing.Items))
		for _, item := range existing.Items {
			owned[item.ID] = struct{}{}
		}
	}
	claimItemIDs(inv.Items, owned)

	if err = s.gw.UpdateRow(ctx, gateway.TableInvoices, inv.ID, rowmap.InvoiceToRow(inv)); err != nil {
		s.notifyFailure(ctx, "update invoice", err)
		return invoicedomain.Invoice{}, err
	}

	if err = s.gw.DeleteRelatedRows(ctx, gateway.TableInvoiceItems, "invoice_id", inv.ID); err != nil {
		err = &PartialWriteError{InvoiceID: inv.ID, Phase: PhaseDeleteItems, Err: err}
		s.log.Error("invoice items not replaced", zap.String("invoice_id", inv.ID), zap.Error(err))
		s.notifyFailure(ctx, "update invoice", err)
		return invoicedomain.Invoice{}, err
	}

	itemRows, err := s.gw.InsertRows(ctx, gateway.TableInvoiceItems, rowmap.ItemsToRows(inv.ID, inv.Items))
	if err != nil {
		err = &PartialWriteError{InvoiceID: inv.ID, Phase: PhaseInsertItems, Err: err}
		s.log.Error("invoice items not replaced", zap.String("invoice_id", inv.ID), zap.Error(err))
		s.notifyFailure(ctx, "update invoice", err)
		return invoicedomain.Invoice{}, err
	}

	updated := inv
	updated.Items = make([]invoicedomain.InvoiceItem, 0, len(itemRows))
	for _, itemRow := range itemRows {
		item, err := rowmap.ItemFromRow(itemRow)
		if err != nil {
			s.notifyFailure(ctx, "update invoice", err)
			return invoicedomain.Invoice{}, err
		}
		updated.Items = append(updated.Items, item)
	}

	s.commit(gen, func() {
		next := make([]invoicedomain.Invoice, len(s.invoices))
		for i, cur := range s.invoices {
			if cur.ID == updated.ID {
				next[i] = updated
				continue
			}
			next[i] = cur
		}
		s.invoices = next
	})
	s.notifySuccess(ctx, "Invoice Updated", fmt.Sprintf("Invoice %s has been updated.", updated.InvoiceNumber))
	return updated.Clone(), nil
}

// UpdateInvoiceStatus changes only the status of a locally known invoice.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, id string, status invoicedomain.InvoiceStatus) (invoicedomain.Invoice, error) {
	inv, ok := s.GetInvoiceByID(id)
	if !ok {
		return invoicedomain.Invoice{}, ErrInvoiceNotFound
	}
	inv.Status = status
	return s.UpdateInvoice(ctx, inv)
}

// DeleteInvoice removes the row; items go with it through the store's cascade.
func (s *Store) DeleteInvoice(ctx context.Context, id string) (err error) {
	done := s.track("delete_invoice")
	defer func() { done(err) }()

	gen, err := s.begin()
	if err != nil {
		return err
	}

	existing, known := s.GetInvoiceByID(id)
	if err = s.gw.DeleteRow(ctx, gateway.TableInvoices, id); err != nil {
		s.notifyFailure(ctx, "delete invoice", err)
		return err
	}

	s.commit(gen, func() {
		next := make([]invoicedomain.Invoice, 0, len(s.invoices))
		for _, cur := range s.invoices {
			if cur.ID != id {
				next = append(next, cur)
			}
		}
		s.invoices = next
	})

	number := id
	if known {
		number = existing.InvoiceNumber
	}
	s.notifySuccess(ctx, "Invoice Deleted", fmt.Sprintf("Invoice %s has been deleted.", number))
	return nil
}

// claimItemIDs keeps an item id only when owned lists it and no earlier item
// already took it. Every other item gets a fresh id, so a write never collides
// with an item row of another invoice.
func claimItemIDs(items []invoicedomain.InvoiceItem, owned map[string]struct{}) {
	taken := make(map[string]struct{}, len(items))
	for i := range items {
		id := items[i].ID
		_, mine := owned[id]
		_, dup := taken[id]
		if id == "" || !mine || dup {
			id = uuid.NewString()
			items[i].ID = id
		}
		taken[id] = struct{}{}
	}
}
