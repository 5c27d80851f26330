package utils

import "github.com/gofiber/fiber/v2"

// Pagination is the metadata block list endpoints attach next to their data.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type envelope struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(envelope{Success: false, Error: message})
}

func Paginated(c *fiber.Ctx, data interface{}, p PaginationParams, total int64) error {
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return c.Status(fiber.StatusOK).JSON(envelope{
		Success: true,
		Data:    data,
		Pagination: &Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: pages,
		},
	})
}
