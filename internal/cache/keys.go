package cache

import (
	"fmt"
	"strings"
)

// Static keys.
const (
	ProductsAllKey   = "products:all"
	CategoriesAllKey = "categories:all"

	// ProductsPattern matches every product key, for sweep invalidation.
	ProductsPattern = "products:*"
)

// Tags group keys whose scope cannot be derived from a single write.
const (
	OrderListsTag = "tag:orders:lists"
	FinanceTag    = "tag:finance"
)

func OrderKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

// OrderListKey identifies one page of an order listing.
func OrderListKey(status string, limit, page int) string {
	if status == "" {
		status = "all"
	}
	return fmt.Sprintf("orders:list:%s:%d:%d", status, limit, page)
}

func ProductKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

func ProductsByCategoryKey(categoryID int64) string {
	return fmt.Sprintf("products:category:%d", categoryID)
}

func CategoryKey(id int64) string {
	return fmt.Sprintf("categories:%d", id)
}

// CategoryTag groups every product key that embeds the category's name.
func CategoryTag(categoryID int64) string {
	return fmt.Sprintf("tag:category:%d", categoryID)
}

// FinanceKey identifies a cached finance aggregate, e.g. FinanceKey("today", "2024-05-01", "cash").
func FinanceKey(scope string, parts ...string) string {
	key := "finance:" + scope
	if len(parts) > 0 {
		key += ":" + strings.Join(parts, ":")
	}
	return key
}

func ClientKey(phone string) string {
	return "clients:" + phone
}
