package cart

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func fullLine(id LineID, storeID int64, price int64, qty int, selected bool) Line {
	return Line{
		ID:        id,
		StoreID:   storeID,
		StoreName: "Toko",
		Product:   FullProduct{ID: int64(id) * 10, Name: "Produk", BasePrice: price, Stock: intPtr(100)},
		Quantity:  qty,
		Selected:  selected,
	}
}
