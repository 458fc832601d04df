package flattener

// VouchersKey is the top-level key holding the voucher list.
const VouchersKey = "tallymessage"

// FlatRow is one ledger line with its voucher's fields copied onto it. Fields missing from the
// source stay Null and are written as JSON null.
type FlatRow struct {
	Date          Value `json:"date"`
	VoucherNumber Value `json:"voucher_number"`
	VoucherType   Value `json:"voucher_type"`
	Narration     Value `json:"narration"`
	Party         Value `json:"party"`
	LedgerName    Value `json:"ledger_name"`
	Amount        Value `json:"amount"`
	GUID          Value `json:"guid"`
}

// Stats describes what a flatten pass saw.
type Stats struct {
	Vouchers int `json:"vouchers"`
	Rows     int `json:"rows"`
	// SkippedEntries counts ledger list elements that were not mappings.
	SkippedEntries int `json:"skipped_entries"`
	// UnparsedAmounts counts rows whose amount was kept in its raw form.
	UnparsedAmounts   int            `json:"unparsed_amounts"`
	RowsByVoucherType map[string]int `json:"rows_by_voucher_type"`
}

const unknownVoucherType = "unknown"

type voucherFields struct {
	date, number, kind, narration, party, guid Value
}

func readVoucherFields(voucher Value) voucherFields {
	field := func(candidates ...string) Value {
		v, _ := Lookup(voucher, candidates...)
		return v
	}
	return voucherFields{
		date:      field("date"),
		number:    field("vouchernumber", "voucherkey"),
		kind:      field("vouchertypename", "vchtype"),
		narration: field("narration"),
		party:     field("partyname", "partyledgername"),
		guid:      field("guid"),
	}
}

// Vouchers returns the voucher records of a document. A document without the voucher key, or
// whose key does not hold a list, has no vouchers.
func Vouchers(doc Value) []Value {
	m, ok := doc.AsMapping()
	if !ok {
		return nil
	}
	items, _ := m[VouchersKey].AsList()
	return items
}

// Flatten produces one row per ledger entry across all vouchers, in document order.
func Flatten(doc Value) []FlatRow {
	rows, _ := FlattenWithStats(doc)
	return rows
}

// FlattenWithStats is Flatten plus counters for the entries it had to skip or keep raw.
func FlattenWithStats(doc Value) ([]FlatRow, Stats) {
	stats := Stats{RowsByVoucherType: map[string]int{}}
	var rows []FlatRow

	for _, voucher := range Vouchers(doc) {
		stats.Vouchers++
		base := readVoucherFields(voucher)

		for _, entry := range DiscoverLedgerBlocks(voucher) {
			if entry.Kind() != Mapping {
				stats.SkippedEntries++
				continue
			}

			ledgerName, _ := Lookup(entry, "ledgername", "LEDGERNAME", "ledger")
			rawAmount, _ := Lookup(entry, "amount", "AMOUNT", "value")
			amount := NormalizeAmount(rawAmount)
			if !rawAmount.IsNull() && amount.Kind() != Number {
				stats.UnparsedAmounts++
			}

			rows = append(rows, FlatRow{
				Date:          base.date,
				VoucherNumber: base.number,
				VoucherType:   base.kind,
				Narration:     base.narration,
				Party:         base.party,
				LedgerName:    ledgerName,
				Amount:        amount,
				GUID:          base.guid,
			})
			stats.RowsByVoucherType[voucherTypeLabel(base.kind)]++
		}
	}

	stats.Rows = len(rows)
	return rows, stats
}

func voucherTypeLabel(v Value) string {
	if s, ok := v.AsString(); ok && s != "" {
		return s
	}
	return unknownVoucherType
}
