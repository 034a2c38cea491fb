package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// handleSpending summarizes purchases per category over a window. The
// window defaults to the last 30 days.
func (s *Server) handleSpending(c *fiber.Ctx) error {
	to := time.Now()
	from := to.AddDate(0, 0, -30)

	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid from date, expected YYYY-MM-DD"})
		}
		from = t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid to date, expected YYYY-MM-DD"})
		}
		// include the whole end day
		to = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	if from.After(to) {
		return c.Status(400).JSON(fiber.Map{"error": "from must not be after to"})
	}

	rows, err := s.store.SpendingByCategory(from, to)
	if err != nil {
		return s.respondError(c, err)
	}

	var total float64
	for _, row := range rows {
		total += row.Total
	}

	return c.JSON(fiber.Map{
		"from":       from.Format("2006-01-02"),
		"to":         to.Format("2006-01-02"),
		"total":      total,
		"categories": rows,
	})
}
