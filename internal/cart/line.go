package cart

// LineID identifies a cart line; unique within one customer's cart.
type LineID int64

// UnknownStoreID buckets lines whose owning store could not be resolved.
const UnknownStoreID int64 = 0

// DefaultMaxQuantity caps lines that carry no stock figure at all.
const DefaultMaxQuantity = 999

// ProductRef is either a FullProduct snapshot or a bare ProductReference.
type ProductRef interface {
	productID() int64
	productName() string
}

// FullProduct is the embedded product snapshot returned with a cart line.
type FullProduct struct {
	ID              int64
	Name            string
	BasePrice       int64
	DiscountPercent float64
	Stock           *int
	ImageURL        string
}

func (p FullProduct) productID() int64    { return p.ID }
func (p FullProduct) productName() string { return p.Name }

// ProductReference is used when the product was deleted or is unavailable and only
// its id survives on the line.
type ProductReference struct {
	ID   int64
	Name string
}

func (p ProductReference) productID() int64    { return p.ID }
func (p ProductReference) productName() string { return p.Name }

// Variant is a specific option of a product with its own price and stock.
type Variant struct {
	ID    int64
	Name  string
	Price *int64
	Stock *int
}

// CachedPricing holds the price fields stored on the line itself.
type CachedPricing struct {
	Price           int64
	DiscountPercent float64
}

// Line is one product/variant/quantity/selection entry in a customer's cart.
type Line struct {
	ID        LineID
	StoreID   int64
	StoreName string
	Product   ProductRef
	Variant   *Variant
	Cached    CachedPricing
	Quantity  int
	Selected  bool
}

// ProductID returns the referenced product id, or zero when unresolved.
func (l Line) ProductID() int64 {
	if l.Product == nil {
		return 0
	}
	return l.Product.productID()
}

// ProductName returns the display name, suffixed with the variant name when present.
func (l Line) ProductName() string {
	name := ""
	if l.Product != nil {
		name = l.Product.productName()
	}
	if l.Variant != nil && l.Variant.Name != "" {
		if name == "" {
			return l.Variant.Name
		}
		return name + " - " + l.Variant.Name
	}
	return name
}

// Available reports whether the line still points at a live product snapshot.
func (l Line) Available() bool {
	_, ok := l.Product.(FullProduct)
	return ok
}

// MaxQuantity returns the effective stock ceiling for the line: variant stock, else
// product stock, else fallback.
func (l Line) MaxQuantity(fallback int) int {
	if fallback < 1 {
		fallback = DefaultMaxQuantity
	}
	if l.Variant != nil && l.Variant.Stock != nil {
		return clampStock(*l.Variant.Stock)
	}
	if full, ok := l.Product.(FullProduct); ok && full.Stock != nil {
		return clampStock(*full.Stock)
	}
	return fallback
}

// clampStock keeps the ceiling usable when stock is exhausted; availability is the
// backend's call, the quantity invariant only needs qty >= 1.
func clampStock(stock int) int {
	if stock < 1 {
		return 1
	}
	return stock
}

func (l Line) clone() Line {
	out := l
	if l.Variant != nil {
		v := *l.Variant
		if l.Variant.Price != nil {
			price := *l.Variant.Price
			v.Price = &price
		}
		if l.Variant.Stock != nil {
			stock := *l.Variant.Stock
			v.Stock = &stock
		}
		out.Variant = &v
	}
	if full, ok := l.Product.(FullProduct); ok && full.Stock != nil {
		stock := *full.Stock
		full.Stock = &stock
		out.Product = full
	}
	return out
}

// Lines is an ordered cart snapshot.
type Lines []Line

// Clone returns a deep copy of the snapshot.
func (ls Lines) Clone() Lines {
	if ls == nil {
		return nil
	}
	out := make(Lines, len(ls))
	for i, line := range ls {
		out[i] = line.clone()
	}
	return out
}

// Index returns the position of id in the snapshot, or -1.
func (ls Lines) Index(id LineID) int {
	for i, line := range ls {
		if line.ID == id {
			return i
		}
	}
	return -1
}

// Find returns the line with id.
func (ls Lines) Find(id LineID) (Line, bool) {
	if idx := ls.Index(id); idx >= 0 {
		return ls[idx], true
	}
	return Line{}, false
}

// IDs returns the line ids in snapshot order.
func (ls Lines) IDs() []LineID {
	ids := make([]LineID, 0, len(ls))
	for _, line := range ls {
		ids = append(ids, line.ID)
	}
	return ids
}

// Selected returns the selected lines, preserving order.
func (ls Lines) Selected() Lines {
	out := make(Lines, 0, len(ls))
	for _, line := range ls {
		if line.Selected {
			out = append(out, line)
		}
	}
	return out
}

// SelectedStoreIDs returns the distinct store ids of selected lines in first-seen order.
func (ls Lines) SelectedStoreIDs() []int64 {
	seen := map[int64]struct{}{}
	ids := []int64{}
	for _, line := range ls {
		if !line.Selected {
			continue
		}
		if _, ok := seen[line.StoreID]; ok {
			continue
		}
		seen[line.StoreID] = struct{}{}
		ids = append(ids, line.StoreID)
	}
	return ids
}
