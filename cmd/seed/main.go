// Package main implements a seed script that fills the storefront with
// realistic demo traffic: it creates carts for a batch of fake users through
// the public HTTP API, applies coupon codes to some of them, and submits a
// subset through checkout.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

var client = &http.Client{Timeout: 10 * time.Second}

// doJSON sends a JSON request as the given user and decodes the JSON reply.
func doJSON(method, url, userID string, body any) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", userID)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	decoded := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &decoded)
	}
	return resp.StatusCode, decoded, nil
}

var sizes = []string{"XS", "S", "M", "L", "XL", "38", "40", "42", "44"}

func fakeProduct() map[string]any {
	price := decimal.NewFromFloat(gofakeit.Price(9.99, 299.99)).Round(2)
	return map[string]any{
		"id":        gofakeit.UUID(),
		"name":      gofakeit.ProductName(),
		"price":     price.String(),
		"image_url": gofakeit.ImageURL(640, 640),
		"category":  gofakeit.ProductCategory(),
	}
}

func fakeAddress() map[string]any {
	addr := gofakeit.Address()
	return map[string]any{
		"address_line": addr.Street,
		"city":         addr.City,
		"state":        addr.State,
		"postal_code":  addr.Zip,
		"country":      "PK",
	}
}

func seedCart(baseURL, userID string, lines int) error {
	for i := 0; i < lines; i++ {
		body := map[string]any{
			"product":        fakeProduct(),
			"quantity":       rand.Intn(3) + 1,
			"selected_size":  sizes[rand.Intn(len(sizes))],
			"selected_color": gofakeit.Color(),
		}
		status, _, err := doJSON(http.MethodPost, baseURL+"/api/v1/cart/items", userID, body)
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("add item returned %d", status)
		}
	}
	return nil
}

func seedCheckout(baseURL, userID string) (string, error) {
	body := map[string]any{
		"full_name":        gofakeit.Name(),
		"email":            gofakeit.Email(),
		"phone":            gofakeit.Phone(),
		"shipping_address": fakeAddress(),
		"payment_method":   []string{"cod", "card", "bank_transfer"}[rand.Intn(3)],
	}
	status, resp, err := doJSON(http.MethodPost, baseURL+"/api/v1/checkout", userID, body)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("checkout returned %d: %v", status, resp)
	}
	if data, ok := resp["data"].(map[string]any); ok {
		if s, ok := data["status"].(string); ok {
			return s, nil
		}
	}
	return "unknown", nil
}

func main() {
	baseURL := getEnv("STOREFRONT_URL", "http://localhost:8010")
	users := getEnvInt("SEED_USERS", 25)
	couponCode := getEnv("SEED_COUPON_CODE", "WELCOME10")

	log.Printf("seeding %d users against %s", users, baseURL)

	carts, coupons, submitted := 0, 0, 0
	for i := 0; i < users; i++ {
		userID := fmt.Sprintf("seed-%s", gofakeit.UUID())

		if err := seedCart(baseURL, userID, rand.Intn(4)+1); err != nil {
			log.Printf("user %s: cart seeding failed: %v", userID, err)
			continue
		}
		carts++

		// Roughly a third of the users try a coupon.
		if rand.Intn(3) == 0 {
			status, _, err := doJSON(http.MethodPost, baseURL+"/api/v1/cart/coupon", userID,
				map[string]any{"code": couponCode})
			if err == nil && status == http.StatusOK {
				coupons++
			}
		}

		// Half of the users go through checkout.
		if rand.Intn(2) == 0 {
			outcome, err := seedCheckout(baseURL, userID)
			if err != nil {
				log.Printf("user %s: checkout failed: %v", userID, err)
				continue
			}
			submitted++
			log.Printf("user %s: checkout %s", userID, outcome)
		}
	}

	log.Printf("done: %d carts seeded, %d coupon attempts, %d checkouts submitted", carts, coupons, submitted)
}
