package exposure

import (
	"github.com/ginjaninja78/salt-nexus-analyzer/internal/types"
	"github.com/shopspring/decimal"
)

// Row is the exposure of one state in one post-trigger month.
type Row struct {
	State string
	Month types.Month

	TaxableSales decimal.Decimal
	TaxRate      decimal.Decimal
	EstimatedTax decimal.Decimal

	FullInterest  decimal.Decimal
	FullPenalty   decimal.Decimal
	FullLiability decimal.Decimal

	VDATax       decimal.Decimal
	VDAInterest  decimal.Decimal
	VDAPenalty   decimal.Decimal
	VDALiability decimal.Decimal

	EstimatedVDASavings decimal.Decimal
}

// Result holds the exposure rows of one run, ordered by state then month.
type Result struct {
	Rows []Row
}

// Totals is the sum of every money column for one state.
type Totals struct {
	State  string
	Months int

	TaxableSales        decimal.Decimal
	EstimatedTax        decimal.Decimal
	FullInterest        decimal.Decimal
	FullPenalty         decimal.Decimal
	FullLiability       decimal.Decimal
	VDATax              decimal.Decimal
	VDAInterest         decimal.Decimal
	VDAPenalty          decimal.Decimal
	VDALiability        decimal.Decimal
	EstimatedVDASavings decimal.Decimal
}

func (t *Totals) add(r Row) {
	t.Months++
	t.TaxableSales = t.TaxableSales.Add(r.TaxableSales)
	t.EstimatedTax = t.EstimatedTax.Add(r.EstimatedTax)
	t.FullInterest = t.FullInterest.Add(r.FullInterest)
	t.FullPenalty = t.FullPenalty.Add(r.FullPenalty)
	t.FullLiability = t.FullLiability.Add(r.FullLiability)
	t.VDATax = t.VDATax.Add(r.VDATax)
	t.VDAInterest = t.VDAInterest.Add(r.VDAInterest)
	t.VDAPenalty = t.VDAPenalty.Add(r.VDAPenalty)
	t.VDALiability = t.VDALiability.Add(r.VDALiability)
	t.EstimatedVDASavings = t.EstimatedVDASavings.Add(r.EstimatedVDASavings)
}

// Totals returns per-state sums in state order. Rows are already sorted,
// so states appear in the order they are first seen.
func (r *Result) Totals() []Totals {
	if r == nil {
		return nil
	}
	var out []Totals
	for _, row := range r.Rows {
		if len(out) == 0 || out[len(out)-1].State != row.State {
			out = append(out, Totals{State: row.State})
		}
		out[len(out)-1].add(row)
	}
	return out
}

// GrandTotal sums every state's totals.
func (r *Result) GrandTotal() Totals {
	grand := Totals{State: "TOTAL"}
	if r == nil {
		return grand
	}
	for _, row := range r.Rows {
		grand.add(row)
	}
	return grand
}
