package panel

// exactKey groups records that are content-identical across sources.
type exactKey struct {
	UnitID       string
	Year         int
	PhaseCode    int
	RecordType   string
	TaxonomyCode string
	Price        float64
	Quantity     float64
	Amount       float64
}

// businessKey groups records that describe the same registration regardless
// of price, quantity, and amount.
type businessKey struct {
	UnitID       string
	Year         int
	PhaseCode    int
	RecordType   string
	TaxonomyCode string
}

type keyStats struct {
	hasMEF    bool
	hasMINEDU bool
	rows      int
	rowsMEF   int
	rowsMIN   int
}

// AnnotateOverlap attaches overlap flags to every record by grouping the
// snapshot on the exact key and the business key independently. It is an
// annotation pass only: no record is dropped or merged, and the input order
// is preserved. Downstream consumers decide whether the flags drive
// deduplication; today they are audit-only.
func AnnotateOverlap(records []NormalizedRecord) []NormalizedRecord {
	exact := make(map[exactKey]*keyStats)
	business := make(map[businessKey]*keyStats)

	for i := range records {
		r := &records[i]
		ek := exactKeyOf(r)
		bk := businessKeyOf(r)

		es := exact[ek]
		if es == nil {
			es = &keyStats{}
			exact[ek] = es
		}
		bs := business[bk]
		if bs == nil {
			bs = &keyStats{}
			business[bk] = bs
		}

		for _, s := range []*keyStats{es, bs} {
			s.rows++
			switch r.Source {
			case SourceMEF:
				s.hasMEF = true
				s.rowsMEF++
			case SourceMINEDU:
				s.hasMINEDU = true
				s.rowsMIN++
			}
		}
	}

	out := make([]NormalizedRecord, len(records))
	for i, r := range records {
		es := exact[exactKeyOf(&r)]
		bs := business[businessKeyOf(&r)]
		r.Overlap = OverlapFlags{
			ExactHasMEF:          es.hasMEF,
			ExactHasMINEDU:       es.hasMINEDU,
			RowsUnderExactKey:    es.rows,
			BusinessHasMEF:       bs.hasMEF,
			BusinessHasMINEDU:    bs.hasMINEDU,
			RowsMEF:              bs.rowsMEF,
			RowsMINEDU:           bs.rowsMIN,
			RowsUnderBusinessKey: bs.rows,
		}
		out[i] = r
	}
	return out
}

func exactKeyOf(r *NormalizedRecord) exactKey {
	return exactKey{
		UnitID:       r.UnitID,
		Year:         r.Year,
		PhaseCode:    r.PhaseCode,
		RecordType:   r.RecordType,
		TaxonomyCode: r.TaxonomyCode,
		Price:        r.Price,
		Quantity:     r.Quantity,
		Amount:       r.Amount,
	}
}

func businessKeyOf(r *NormalizedRecord) businessKey {
	return businessKey{
		UnitID:       r.UnitID,
		Year:         r.Year,
		PhaseCode:    r.PhaseCode,
		RecordType:   r.RecordType,
		TaxonomyCode: r.TaxonomyCode,
	}
}
