// Package ad holds the marketplace advertisement model.
package ad

// Ad is a marketplace entry shown on the market screen. The client only
// lists ads; all mutation happens elsewhere.
type Ad struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"image_url"`
	Link        string `json:"link"`
}
