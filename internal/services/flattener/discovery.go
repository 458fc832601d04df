package flattener

// Key names under which the export variants keep their ledger lists.
var (
	directLedgerKeys = []string{
		"accountingallocations",
		"ledgerentries",
		"allledgerentries",
		"ALLLEDGERENTRIES.LIST",
		"allledgerentries_list",
	}
	inventoryKeys          = []string{"allinventoryentries", "allinventoryentries_list"}
	inventoryLedgerKeys    = []string{"accountingallocations", "allledgerentries", "ledgerentries"}
	batchAllocationKey     = "batchallocations"
	accountingAllocations  = "accountingallocations"
	nestedVoucherKey       = "voucher"
	nestedInventoryKey     = "allinventoryentries"
	fallbackLedgerEntryKey = "ledgerentries"
)

// extractionStrategy pulls the ledger blocks of one known document shape out of a voucher.
type extractionStrategy struct {
	name    string
	extract func(voucher Value) []Value
}

// ledgerStrategies run in order and their results are concatenated. A voucher populating more
// than one shape gets the union, so overlapping shapes yield duplicate rows.
var ledgerStrategies = []extractionStrategy{
	{name: "direct", extract: directEntries},
	{name: "inventory", extract: inventoryEntries},
	{name: "nested-voucher", extract: nestedVoucherEntries},
}

// DiscoverLedgerBlocks collects every ledger block of a voucher record. Elements are returned
// as found; callers drop the ones that are not mappings.
func DiscoverLedgerBlocks(voucher Value) []Value {
	var blocks []Value
	for _, s := range ledgerStrategies {
		blocks = append(blocks, s.extract(voucher)...)
	}
	if len(blocks) == 0 {
		blocks = lookupList(voucher, fallbackLedgerEntryKey)
	}
	return blocks
}

func directEntries(voucher Value) []Value {
	var blocks []Value
	for _, key := range directLedgerKeys {
		blocks = append(blocks, lookupList(voucher, key)...)
	}
	return blocks
}

func inventoryEntries(voucher Value) []Value {
	var blocks []Value
	for _, item := range lookupList(voucher, inventoryKeys...) {
		for _, key := range inventoryLedgerKeys {
			blocks = append(blocks, lookupList(item, key)...)
		}
		for _, batch := range lookupList(item, batchAllocationKey) {
			blocks = append(blocks, lookupList(batch, accountingAllocations)...)
		}
	}
	return blocks
}

func nestedVoucherEntries(voucher Value) []Value {
	inner, ok := Lookup(voucher, nestedVoucherKey)
	if !ok || inner.Kind() != Mapping {
		return nil
	}

	blocks := directEntries(inner)
	for _, item := range lookupList(inner, nestedInventoryKey) {
		blocks = append(blocks, lookupList(item, accountingAllocations)...)
	}
	return blocks
}
