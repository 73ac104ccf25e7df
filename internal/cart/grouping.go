package cart

// UnknownStoreName labels the bucket of lines without a resolvable store.
const UnknownStoreName = "Toko tidak diketahui"

// StoreGroup is the set of cart lines owned by one store.
type StoreGroup struct {
	StoreID   int64
	StoreName string
	Lines     Lines
}

// GroupByStore partitions lines by owning store. Groups appear in the order their
// store is first seen scanning lines top to bottom; lines keep their relative order.
func GroupByStore(lines Lines) []StoreGroup {
	groups := make([]StoreGroup, 0)
	index := make(map[int64]int, len(lines))
	for _, line := range lines {
		key := line.StoreID
		if key < 0 {
			key = UnknownStoreID
		}
		pos, ok := index[key]
		if !ok {
			groups = append(groups, StoreGroup{StoreID: key, StoreName: storeLabel(key, line.StoreName)})
			pos = len(groups) - 1
			index[key] = pos
		} else if groups[pos].StoreName == "" && line.StoreName != "" {
			groups[pos].StoreName = line.StoreName
		}
		groups[pos].Lines = append(groups[pos].Lines, line.clone())
	}
	return groups
}

// GroupSelectedByStore groups only the selected lines, as shown on checkout review.
func GroupSelectedByStore(lines Lines) []StoreGroup {
	return GroupByStore(lines.Selected())
}

func storeLabel(storeID int64, name string) string {
	if storeID == UnknownStoreID {
		return UnknownStoreName
	}
	return name
}

// StoreTotals captures pre-calculated totals for one store group.
type StoreTotals struct {
	StoreID       int64  `json:"store_id"`
	StoreName     string `json:"store_name"`
	SelectedCount int    `json:"selected_count"`
	Quantity      int    `json:"quantity"`
	Subtotal      int64  `json:"subtotal"`
}

// ComputeStoreTotals returns the selected subtotal of every group, in group order.
func ComputeStoreTotals(groups []StoreGroup) []StoreTotals {
	results := make([]StoreTotals, 0, len(groups))
	for _, group := range groups {
		totals := StoreTotals{StoreID: group.StoreID, StoreName: group.StoreName}
		for _, line := range group.Lines {
			if !line.Selected {
				continue
			}
			totals.SelectedCount++
			totals.Quantity += line.Quantity
			totals.Subtotal += LineSubtotal(line)
		}
		results = append(results, totals)
	}
	return results
}
