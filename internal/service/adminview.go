package service

import (
	"sort"
	"strings"

	"victor-smm-api/internal/model"
)

// Admin panel queries are client-side over the cached mirrors: substring
// search plus a single-key ascending/descending sort toggle.

// OrderQuery filters and sorts the admin order list.
type OrderQuery struct {
	Search string
	Status string
	SortBy string // created_at or amount
	Asc    bool
}

// QueryOrders applies an OrderQuery. Default sort is created_at
// descending.
func QueryOrders(orders []model.Order, query OrderQuery) []model.Order {
	out := make([]model.Order, len(orders))
	copy(out, orders)

	if search := strings.ToLower(strings.TrimSpace(query.Search)); search != "" {
		filtered := out[:0]
		for _, o := range out {
			if strings.Contains(strings.ToLower(o.ProductName), search) ||
				strings.Contains(strings.ToLower(o.ID), search) ||
				strings.Contains(strings.ToLower(o.UserID), search) {
				filtered = append(filtered, o)
			}
		}
		out = filtered
	}

	if query.Status != "" && query.Status != "all" {
		filtered := out[:0]
		for _, o := range out {
			if o.Status == query.Status {
				filtered = append(filtered, o)
			}
		}
		out = filtered
	}

	switch query.SortBy {
	case "amount":
		sort.SliceStable(out, func(i, j int) bool {
			if query.Asc {
				return out[i].Amount < out[j].Amount
			}
			return out[i].Amount > out[j].Amount
		})
	default: // created_at
		sort.SliceStable(out, func(i, j int) bool {
			if query.Asc {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}

	return out
}

// UserQuery filters and sorts the admin user list.
type UserQuery struct {
	Search string
	SortBy string // username or balance
	Asc    bool
}

// QueryUsers applies a UserQuery. Search matches username or email.
func QueryUsers(users []model.User, query UserQuery) []model.User {
	out := make([]model.User, len(users))
	copy(out, users)

	if search := strings.ToLower(strings.TrimSpace(query.Search)); search != "" {
		filtered := out[:0]
		for _, u := range out {
			if strings.Contains(strings.ToLower(u.Username), search) ||
				strings.Contains(strings.ToLower(u.Email), search) {
				filtered = append(filtered, u)
			}
		}
		out = filtered
	}

	switch query.SortBy {
	case "username":
		sort.SliceStable(out, func(i, j int) bool {
			if query.Asc {
				return out[i].Username < out[j].Username
			}
			return out[i].Username > out[j].Username
		})
	case "balance":
		sort.SliceStable(out, func(i, j int) bool {
			if query.Asc {
				return out[i].Balance < out[j].Balance
			}
			return out[i].Balance > out[j].Balance
		})
	}

	return out
}
