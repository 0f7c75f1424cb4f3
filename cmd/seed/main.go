package main

import (
	"database/sql"
	"log"

	"minishop-be/internal/config"
	"minishop-be/internal/db"
)

type seedProduct struct {
	name       string
	priceCents int64
	stock      int
}

var products = []seedProduct{
	{"Smartphone Galaxy S23", 399999, 25},
	{"Notebook Dell Inspiron", 289990, 10},
	{"Wireless Headphones", 19990, 50},
	{"Basic Cotton T-Shirt", 4990, 100},
	{"Clean Code", 8990, 40},
	{"Garden Tool Set", 15990, 15},
}

func main() {
	cfg := config.LoadConfig()
	database := db.InitDB(cfg)
	defer database.Close()

	if err := seed(database); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
	log.Println("Seed completed successfully")
}

func seed(database *sql.DB) error {
	tx, err := database.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Start from a clean slate, respecting FK order.
	for _, table := range []string{"order_items", "orders", "products"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	for _, p := range products {
		if _, err := tx.Exec(`
			INSERT INTO products (name, price_cents, stock)
			VALUES ($1, $2, $3)
		`, p.name, p.priceCents, p.stock); err != nil {
			return err
		}
	}

	return tx.Commit()
}
