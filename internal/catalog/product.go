package catalog

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Product mirrors a record of the upstream product collection. Optional
// fields are pointers so absence can be told apart from zero.
type Product struct {
	ID              string   `json:"_id" yaml:"_id"`
	Name            string   `json:"name" yaml:"name"`
	Price           float64  `json:"price" yaml:"price"`
	OriginalPrice   *float64 `json:"originalPrice,omitempty" yaml:"originalPrice,omitempty"`
	Rating          *float64 `json:"rating,omitempty" yaml:"rating,omitempty"`
	Reviews         *int     `json:"reviews,omitempty" yaml:"reviews,omitempty"`
	ImageURL        string   `json:"imageUrl" yaml:"imageUrl"`
	DiscountPercent *float64 `json:"discountPercent,omitempty" yaml:"discountPercent,omitempty"`
}

// RatingOrZero returns the rating, or 0 when absent.
func (p Product) RatingOrZero() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// ReviewsOrZero returns the review count, or 0 when absent.
func (p Product) ReviewsOrZero() int {
	if p.Reviews == nil {
		return 0
	}
	return *p.Reviews
}

// HasDiscount reports whether a discount percentage was supplied.
func (p Product) HasDiscount() bool {
	return p.DiscountPercent != nil
}

// HasOriginalPrice reports whether an original (pre-discount) price was supplied.
func (p Product) HasOriginalPrice() bool {
	return p.OriginalPrice != nil
}

// CreatedAt derives the creation time from a MongoDB ObjectId identifier,
// whose first four bytes hold a big-endian unix timestamp.
func (p Product) CreatedAt() (time.Time, bool) {
	id := strings.TrimSpace(p.ID)
	if len(id) != 24 {
		return time.Time{}, false
	}
	raw, err := hex.DecodeString(id)
	if err != nil {
		return time.Time{}, false
	}
	secs := binary.BigEndian.Uint32(raw[:4])
	return time.Unix(int64(secs), 0).UTC(), true
}

func (p Product) clone() Product {
	cp := p
	cp.OriginalPrice = cloneFloat(p.OriginalPrice)
	cp.Rating = cloneFloat(p.Rating)
	cp.DiscountPercent = cloneFloat(p.DiscountPercent)
	if p.Reviews != nil {
		v := *p.Reviews
		cp.Reviews = &v
	}
	return cp
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneProducts(src []Product) []Product {
	out := make([]Product, len(src))
	for i, p := range src {
		out[i] = p.clone()
	}
	return out
}

// normalizeProducts trims text fields and drops records without an
// identifier, which includes null array elements. Names are kept verbatim
// since templates escape on output. The slice is always non-nil.
func normalizeProducts(src []Product, logger *zap.Logger) []Product {
	out := make([]Product, 0, len(src))
	for _, p := range src {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			continue
		}
		p.Name = strings.TrimSpace(p.Name)
		p.ImageURL = strings.TrimSpace(p.ImageURL)
		out = append(out, p)
	}
	if dropped := len(src) - len(out); dropped > 0 {
		logger.Warn("dropping malformed product records",
			zap.Int("dropped", dropped),
			zap.Int("kept", len(out)),
		)
	}
	return out
}
