package store

// Document is the entire persisted application state. It is read fully at
// startup, held in memory, and rewritten fully on each mutation.
type Document struct {
	Users map[string]*UserRecord `json:"users"`
}

// UserRecord holds one account with its inventory and scan history.
type UserRecord struct {
	PasswordHash string          `json:"password"`
	Inventory    []InventoryItem `json:"inventory"`
	History      []ScanEntry     `json:"history"`
}

// InventoryItem is a single farm inventory row. Quantity stays a free-form
// string ("2 bags", "500g") the way the entry form captures it.
type InventoryItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity string `json:"qty"`
	Notes    string `json:"notes"`
	Date     string `json:"date"`
}

// ScanEntry is one row of the scan log.
type ScanEntry struct {
	Date   string `json:"date"`
	File   string `json:"file"`
	Result string `json:"result"`
	Status string `json:"status"`
}

func newDocument() *Document {
	return &Document{Users: make(map[string]*UserRecord)}
}
