package foodfacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/kitchin/internal/metrics"
	"github.com/dukerupert/kitchin/internal/model"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "Kitchin/1.0 (household kitchen inventory)"
	fields         = "code,product_name,generic_name,brands,image_front_url,image_url,quantity,product_quantity,product_quantity_unit,categories_tags"
)

var (
	ErrInvalidBarcode = errors.New("invalid barcode")
	ErrNotFound       = errors.New("product not found")
)

// Product is the subset of an Open Food Facts record used to prefill food items.
type Product struct {
	Barcode  string  `json:"barcode"`
	Name     string  `json:"name"`
	Brand    string  `json:"brand"`
	Image    string  `json:"image"`
	Type     string  `json:"type"`
	Quantity string  `json:"quantity"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

// FoodInput returns a new food item prefilled from the product.
func (p *Product) FoodInput() model.FoodInput {
	barcode := p.Barcode
	in := model.FoodInput{
		Barcode: &barcode,
		Type:    p.Type,
		Image:   p.Image,
		Name:    p.Name,
		Brand:   p.Brand,
		Unit:    p.Unit,
		Amount:  p.Amount,
		Count:   1,
	}
	if in.Name == "" {
		in.Name = barcode
	}
	return in
}

type cacheEntry struct {
	product   *Product
	fetchedAt time.Time
}

// Client looks products up by barcode and caches hits in memory.
type Client struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
	group singleflight.Group
}

func New(baseURL string, ttl, timeout time.Duration, m *metrics.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		ttl:     ttl,
		metrics: m,
		now:     time.Now,
		cache:   make(map[string]cacheEntry),
	}
}

// ValidBarcode reports whether s looks like an EAN-8, UPC-A, EAN-13 or GTIN-14.
func ValidBarcode(s string) bool {
	if len(s) < 8 || len(s) > 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Lookup returns the product for barcode. Concurrent lookups of the same
// barcode share one request.
func (c *Client) Lookup(ctx context.Context, barcode string) (*Product, error) {
	barcode = strings.TrimSpace(barcode)
	if !ValidBarcode(barcode) {
		return nil, ErrInvalidBarcode
	}

	if p, ok := c.cached(barcode); ok {
		c.metrics.FoodFactsLookup("cache")
		return p, nil
	}

	v, err, _ := c.group.Do(barcode, func() (any, error) {
		// Double-check after winning the flight.
		if p, ok := c.cached(barcode); ok {
			return p, nil
		}
		p, err := c.fetch(ctx, barcode)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[barcode] = cacheEntry{product: p, fetchedAt: c.now()}
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.metrics.FoodFactsLookup("miss")
		} else {
			c.metrics.FoodFactsLookup("error")
		}
		return nil, err
	}
	c.metrics.FoodFactsLookup("remote")
	p := *v.(*Product)
	return &p, nil
}

func (c *Client) cached(barcode string) (*Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.cache[barcode]
	if !ok || c.now().Sub(e.fetchedAt) >= c.ttl {
		return nil, false
	}
	p := *e.product
	return &p, true
}

type apiResponse struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Product struct {
		ProductName         string          `json:"product_name"`
		GenericName         string          `json:"generic_name"`
		Brands              string          `json:"brands"`
		ImageFrontURL       string          `json:"image_front_url"`
		ImageURL            string          `json:"image_url"`
		Quantity            string          `json:"quantity"`
		ProductQuantity     json.RawMessage `json:"product_quantity"`
		ProductQuantityUnit string          `json:"product_quantity_unit"`
		CategoriesTags      []string        `json:"categories_tags"`
	} `json:"product"`
}

func (c *Client) fetch(ctx context.Context, barcode string) (*Product, error) {
	url := fmt.Sprintf("%s/api/v2/product/%s?fields=%s", c.baseURL, barcode, fields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("food facts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("food facts returned status %d", resp.StatusCode)
	}

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode food facts response: %w", err)
	}
	if apiResp.Status != 1 {
		return nil, ErrNotFound
	}
	return toProduct(barcode, &apiResp), nil
}

func toProduct(barcode string, r *apiResponse) *Product {
	src := r.Product
	p := &Product{
		Barcode:  barcode,
		Name:     strings.TrimSpace(src.ProductName),
		Quantity: strings.TrimSpace(src.Quantity),
		Unit:     strings.TrimSpace(src.ProductQuantityUnit),
		Amount:   parseAmount(src.ProductQuantity),
	}
	if p.Name == "" {
		p.Name = strings.TrimSpace(src.GenericName)
	}
	// Brands is a comma-separated list; the first is the owner brand.
	if brand, _, _ := strings.Cut(src.Brands, ","); brand != "" {
		p.Brand = strings.TrimSpace(brand)
	}
	p.Image = src.ImageFrontURL
	if p.Image == "" {
		p.Image = src.ImageURL
	}
	if n := len(src.CategoriesTags); n > 0 {
		// Tags run from broad to specific, e.g. "en:dairies", "en:milks".
		tag := src.CategoriesTags[n-1]
		if _, name, ok := strings.Cut(tag, ":"); ok {
			tag = name
		}
		p.Type = strings.ReplaceAll(tag, "-", " ")
	}
	return p
}

// parseAmount accepts product_quantity as either a JSON number or a string.
func parseAmount(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
