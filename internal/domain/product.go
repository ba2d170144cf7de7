package domain

import "strings"

// Product is a pending listing as returned by the admin catalog. It is
// re-fetched every cycle and never persisted by the pipeline.
type Product struct {
	ID           int64    `json:"id"`
	Title        string   `json:"name"`
	Description  string   `json:"description"`
	MainImage    string   `json:"mainImage"`
	SlideImages  []string `json:"slideImages"`
	CategoryName string   `json:"categoryName"`
	ShopID       int64    `json:"shopId"`
}

// AuditImages returns the deduplicated, ordered list of image URLs to
// moderate: main image first, then the gallery. Non-http(s) URLs are dropped
// and plain http is upgraded to https.
func (p Product) AuditImages() []string {
	candidates := make([]string, 0, len(p.SlideImages)+1)
	if p.MainImage != "" {
		candidates = append(candidates, p.MainImage)
	}
	candidates = append(candidates, p.SlideImages...)

	seen := make(map[string]struct{}, len(candidates))
	images := make([]string, 0, len(candidates))
	for _, url := range candidates {
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			continue
		}
		url = "https://" + strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		images = append(images, url)
	}

	return images
}

// AuditText is the text payload submitted to text moderation.
func (p Product) AuditText() string {
	return "商品名称：" + p.Title + "\n商品描述：" + p.Description
}
