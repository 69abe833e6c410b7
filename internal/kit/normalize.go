package kit

import "strings"

const (
	// PlaceholderImage is shown when an item carries no image reference.
	PlaceholderImage = "https://via.placeholder.com/150?text=No+Image"
	// InertLink is an anchor target that goes nowhere.
	InertLink = "#"
	// UnknownPrice is displayed when upstream sent no price.
	UnknownPrice = "Check Price"
)

// currencySymbols are the markers that make a price string "already priced".
const currencySymbols = "$€£¥₹₩"

// NormalizeItem reconciles the upstream aliases into a canonical Item.
func NormalizeItem(raw RawItem) Item {
	return Item{
		Name:        raw.Name,
		Description: raw.Description,
		Price:       NormalizePrice(raw.Price),
		ImageURL:    ImageURL(raw),
		BuyURL:      LinkURL(raw),
	}
}

// ImageURL picks img_url, then imageUrl, then the placeholder.
func ImageURL(raw RawItem) string {
	if s := strings.TrimSpace(raw.ImgURL); s != "" {
		return s
	}
	if s := strings.TrimSpace(raw.ImageURL); s != "" {
		return s
	}
	return PlaceholderImage
}

// LinkURL picks buy_url, then link, then "#".
func LinkURL(raw RawItem) string {
	if s := strings.TrimSpace(raw.BuyURL); s != "" {
		return s
	}
	if s := strings.TrimSpace(raw.Link); s != "" {
		return s
	}
	return InertLink
}

// NormalizePrice makes a price displayable. It is idempotent:
// NormalizePrice(NormalizePrice(p)) == NormalizePrice(p).
func NormalizePrice(price string) string {
	p := strings.TrimSpace(price)
	if p == "" || p == UnknownPrice {
		return UnknownPrice
	}
	if strings.ContainsAny(p, currencySymbols) {
		return p
	}
	return "$" + p
}
