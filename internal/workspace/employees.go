package workspace

import (
	"context"
	"fmt"

	employeedomain "github.com/smallbiznis/invoicenexus/internal/employee/domain"
	"github.com/smallbiznis/invoicenexus/internal/gateway"
	"github.com/smallbiznis/invoicenexus/internal/rowmap"
)

// AddEmployee inserts draft and appends the stored employee once the insert is confirmed.
func (s *Store) AddEmployee(ctx context.Context, draft employeedomain.Employee) (_ employeedomain.Employee, err error) {
	done := s.track("add_employee")
	defer func() { done(err) }()

	gen, err := s.begin()
	if err != nil {
		return employeedomain.Employee{}, err
	}

	draft.ID = ""
	row, err := s.gw.InsertRow(ctx, gateway.TableEmployees, rowmap.EmployeeToRow(draft))
	if err != nil {
		s.notifyFailure(ctx, "add employee", err)
		return employeedomain.Employee{}, err
	}
	created, err := rowmap.EmployeeFromRow(row)
	if err != nil {
		s.notifyFailure(ctx, "add employee", err)
		return employeedomain.Employee{}, err
	}

	s.commit(gen, func() {
		next := make([]employeedomain.Employee, 0, len(s.employees)+1)
		next = append(next, s.employees...)
		s.employees = append(next, created)
	})
	s.notifySuccess(ctx, "Employee Added", fmt.Sprintf("%s has been added successfully.", created.Name))
	return created, nil
}

// UpdateEmployee writes e and then replaces the local entry with the same id.
func (s *Store) UpdateEmployee(ctx context.Context, e employeedomain.Employee) (_ employeedomain.Employee, err error) {
	done := s.track("update_employee")
	defer func() { done(err) }()

	gen, err := s.begin()
	if err != nil {
		return employeedomain.Employee{}, err
	}

	if err = s.gw.UpdateRow(ctx, gateway.TableEmployees, e.ID, rowmap.EmployeeToRow(e)); err != nil {
		s.notifyFailure(ctx, "update employee", err)
		return employeedomain.Employee{}, err
	}

	s.commit(gen, func() {
		next := make([]employeedomain.Employee, len(s.employees))
		for i, cur := range s.employees {
			if cur.ID == e.ID {
				next[i] = e
				continue
			}
			next[i] = cur
		}
		s.employees = next
	})
	s.notifySuccess(ctx, "Employee Updated", fmt.Sprintf("%s's information has been updated.", e.Name))
	return e, nil
}

// DeleteEmployee refuses while local invoices reference id. An id unknown
// locally is still deleted remotely.
func (s *Store) DeleteEmployee(ctx context.Context, id string) (err error) {
	done := s.track("delete_employee")
	defer func() { done(err) }()

	gen, err := s.begin()
	if err != nil {
		return err
	}

	existing, known := s.GetEmployeeByID(id)
	if len(s.GetInvoicesByEmployeeID(id)) > 0 {
		err = ErrEmployeeHasInvoices
		s.notifyFailure(ctx, "delete employee", err)
		return err
	}

	if err = s.gw.DeleteRow(ctx, gateway.TableEmployees, id); err != nil {
		s.notifyFailure(ctx, "delete employee", err)
		return err
	}

	s.commit(gen, func() {
		next := make([]employeedomain.Employee, 0, len(s.employees))
		for _, cur := range s.employees {
			if cur.ID != id {
				next = append(next, cur)
			}
		}
		s.employees = next
	})

	name := "Employee"
	if known {
		name = existing.Name
	}
	s.notifySuccess(ctx, "Employee Deleted", fmt.Sprintf("%s has been removed.", name))
	return nil
}
