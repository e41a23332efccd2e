package domain

import "time"

// Menu is a navigable console menu node carrying the API URL it guards.
// Description is free text maintained by operators; it may name the HTTP
// methods the menu's API supports (e.g. "订单列表，支持 GET/POST").
type Menu struct {
	ID          int64
	Code        string
	Name        string
	URL         string
	Description string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
